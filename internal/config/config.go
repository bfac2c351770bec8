// Package config provides configuration for the scaler CLI. Scaler
// settings can come from a Kubernetes ConfigMap and be overridden by a
// local YAML file; both are optional and merged over built-in defaults.
package config

import (
	"context"
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Settings represents the merged scaler configuration
type Settings struct {
	Scaler ScalerSettings `yaml:"scaler"`
}

// ScalerSettings tunes which deployments a pass touches and how
// scale-up behaves without restore data
type ScalerSettings struct {
	// LabelSelector narrows the deployments a pass operates on; empty
	// matches every deployment in the namespace
	LabelSelector string `yaml:"labelSelector"`
	// DefaultReplicas is the scale-up target when --restore is not given
	DefaultReplicas int32 `yaml:"defaultReplicas" validate:"min=0"`
	// Exclude lists deployment names that are never scaled
	Exclude []string `yaml:"exclude"`
}

// DefaultSettings returns the built-in configuration: every deployment
// in scope, scale-up to 1 replica without restore data
func DefaultSettings() *Settings {
	return &Settings{
		Scaler: ScalerSettings{
			DefaultReplicas: 1,
		},
	}
}

// LoadSettings merges scaler settings from an optional ConfigMap and an
// optional local YAML file over the defaults. The file overrides the
// ConfigMap, which overrides the defaults (non-zero values win).
func LoadSettings(clientset kubernetes.Interface, namespace, configMapName, configFile string) (*Settings, error) {
	ctx := context.Background()
	settings := DefaultSettings()

	if configMapName != "" {
		cm, err := clientset.CoreV1().ConfigMaps(namespace).Get(ctx, configMapName, metav1.GetOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to get ConfigMap '%s': %w", configMapName, err)
		}

		configData, ok := cm.Data["config"]
		if !ok {
			return nil, fmt.Errorf("ConfigMap '%s' does not contain 'config' key", configMapName)
		}
		var cmSettings Settings
		if err := yaml.Unmarshal([]byte(configData), &cmSettings); err != nil {
			return nil, fmt.Errorf("failed to parse ConfigMap config: %w", err)
		}
		if err := mergo.Merge(settings, cmSettings, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge ConfigMap config: %w", err)
		}
	}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configFile, err)
		}
		var fileSettings Settings
		if err := yaml.Unmarshal(data, &fileSettings); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", configFile, err)
		}
		// File overrides ConfigMap (non-zero values win)
		if err := mergo.Merge(settings, fileSettings, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge config file: %w", err)
		}
	}

	// Validate the merged configuration
	validate := validator.New()
	if err := validate.Struct(settings); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

type Context struct {
	Config *CLIConfig
}

type CLIConfig struct {
	Namespace     string
	Kubeconfig    string
	Debug         bool
	Quiet         bool
	ConfigMapName string
	ConfigFile    string
	OutputFormat  string // table, json
}

func NewContext() *Context {
	return &Context{
		Config: &CLIConfig{},
	}
}
