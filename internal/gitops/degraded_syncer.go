package gitops

import (
	"context"
	"encoding/json"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
)

var applicationGVR = schema.GroupVersionResource{
	Group:    "argoproj.io",
	Version:  "v1alpha1",
	Resource: "applications",
}

const applicationNamespace = "argocd"

// DegradedSyncer drives the delivery controller through its application
// resources when the REST endpoint is unreachable. It can request syncs and
// read coarse status, but cannot force repository refreshes, so convergence
// is slower and status lags behind the controller.
type DegradedSyncer struct {
	dynamic dynamic.Interface
}

// NewDegradedSyncer creates a DegradedSyncer over the given dynamic client.
func NewDegradedSyncer(dyn dynamic.Interface) *DegradedSyncer {
	return &DegradedSyncer{dynamic: dyn}
}

// Strategy implements Syncer.
func (s *DegradedSyncer) Strategy() string { return "degraded" }

func (s *DegradedSyncer) apps() dynamic.ResourceInterface {
	return s.dynamic.Resource(applicationGVR).Namespace(applicationNamespace)
}

// AppExists implements Syncer.
func (s *DegradedSyncer) AppExists(ctx context.Context, app string) (bool, error) {
	_, err := s.apps().Get(ctx, app, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up application %s: %w", app, err)
	}
	return true, nil
}

// Sync implements Syncer. The refresh annotation asks the controller to
// re-read the repository; the operation field requests the sync itself.
func (s *DegradedSyncer) Sync(ctx context.Context, app string) error {
	patch := map[string]interface{}{
		"metadata": map[string]interface{}{
			"annotations": map[string]interface{}{
				"argocd.argoproj.io/refresh": "hard",
			},
		},
		"operation": map[string]interface{}{
			"sync": map[string]interface{}{
				"prune": true,
			},
		},
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return err
	}

	_, err = s.apps().Patch(ctx, app, types.MergePatchType, body, metav1.PatchOptions{})
	if err != nil {
		// A sync already in flight rejects a second operation; the status
		// poll picks it up either way.
		if apierrors.IsConflict(err) || apierrors.IsInvalid(err) {
			return nil
		}
		return fmt.Errorf("failed to request sync of application %s: %w", app, err)
	}
	return nil
}

// Status implements Syncer.
func (s *DegradedSyncer) Status(ctx context.Context, app string) (AppStatus, error) {
	obj, err := s.apps().Get(ctx, app, metav1.GetOptions{})
	if err != nil {
		return AppStatus{}, fmt.Errorf("failed to read application %s: %w", app, err)
	}
	return appStatusFromObject(obj), nil
}

// EnableAutoSync implements Syncer.
func (s *DegradedSyncer) EnableAutoSync(ctx context.Context, app string) error {
	patch := map[string]interface{}{
		"spec": map[string]interface{}{
			"syncPolicy": map[string]interface{}{
				"automated": map[string]interface{}{
					"prune":    true,
					"selfHeal": true,
				},
			},
		},
	}
	body, err := json.Marshal(patch)
	if err != nil {
		return err
	}

	_, err = s.apps().Patch(ctx, app, types.MergePatchType, body, metav1.PatchOptions{})
	if err != nil {
		return fmt.Errorf("failed to enable auto-sync for %s: %w", app, err)
	}
	return nil
}

func appStatusFromObject(obj *unstructured.Unstructured) AppStatus {
	syncStatus, _, _ := unstructured.NestedString(obj.Object, "status", "sync", "status")
	healthStatus, _, _ := unstructured.NestedString(obj.Object, "status", "health", "status")
	return AppStatus{SyncStatus: syncStatus, HealthStatus: healthStatus}
}
