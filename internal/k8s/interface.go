package k8s

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/client-go/kubernetes"
)

// Interface defines the contract for Kubernetes client operations
// This interface allows for easy mocking in tests
type Interface interface {
	// Clientset returns the underlying Kubernetes clientset
	// Useful for direct API access when needed
	Clientset() kubernetes.Interface

	// Deployment operations
	ListDeployments(ctx context.Context, namespace, labelSelector string) ([]appsv1.Deployment, error)
	ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) error
}

// Ensure *Client implements Interface
var _ Interface = (*Client)(nil)
