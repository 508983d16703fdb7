package gitops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
)

func applicationObject(name, syncStatus, healthStatus string) *unstructured.Unstructured {
	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "argoproj.io/v1alpha1",
			"kind":       "Application",
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": applicationNamespace,
			},
			"status": map[string]interface{}{
				"sync":   map[string]interface{}{"status": syncStatus},
				"health": map[string]interface{}{"status": healthStatus},
			},
		},
	}
}

func newFakeDynamic(objects ...runtime.Object) *dynamicfake.FakeDynamicClient {
	scheme := runtime.NewScheme()
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme,
		map[schema.GroupVersionResource]string{applicationGVR: "ApplicationList"}, objects...)
}

func TestDegradedSyncer_AppExists(t *testing.T) {
	t.Parallel()
	client := newFakeDynamic(applicationObject("infrastructure-dev", "Synced", "Healthy"))
	syncer := NewDegradedSyncer(client)

	exists, err := syncer.AppExists(context.Background(), "infrastructure-dev")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = syncer.AppExists(context.Background(), "workloads-dev")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDegradedSyncer_Status(t *testing.T) {
	t.Parallel()
	client := newFakeDynamic(applicationObject("infrastructure-dev", "OutOfSync", "Progressing"))
	syncer := NewDegradedSyncer(client)

	status, err := syncer.Status(context.Background(), "infrastructure-dev")

	require.NoError(t, err)
	assert.Equal(t, "OutOfSync", status.SyncStatus)
	assert.Equal(t, "Progressing", status.HealthStatus)
	assert.False(t, status.Ready())
}

func TestDegradedSyncer_SyncSetsOperationAndRefresh(t *testing.T) {
	t.Parallel()
	client := newFakeDynamic(applicationObject("infrastructure-dev", "OutOfSync", "Progressing"))
	syncer := NewDegradedSyncer(client)

	require.NoError(t, syncer.Sync(context.Background(), "infrastructure-dev"))

	obj, err := client.Resource(applicationGVR).Namespace(applicationNamespace).
		Get(context.Background(), "infrastructure-dev", metav1.GetOptions{})
	require.NoError(t, err)

	annotations := obj.GetAnnotations()
	assert.Equal(t, "hard", annotations["argocd.argoproj.io/refresh"])

	prune, found, err := unstructured.NestedBool(obj.Object, "operation", "sync", "prune")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, prune)
}

func TestDegradedSyncer_EnableAutoSync(t *testing.T) {
	t.Parallel()
	client := newFakeDynamic(applicationObject("workloads-dev", "Synced", "Healthy"))
	syncer := NewDegradedSyncer(client)

	require.NoError(t, syncer.EnableAutoSync(context.Background(), "workloads-dev"))

	obj, err := client.Resource(applicationGVR).Namespace(applicationNamespace).
		Get(context.Background(), "workloads-dev", metav1.GetOptions{})
	require.NoError(t, err)

	automated, found, err := unstructured.NestedMap(obj.Object, "spec", "syncPolicy", "automated")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, true, automated["prune"])
	assert.Equal(t, true, automated["selfHeal"])
}

func TestAppStatus_Ready(t *testing.T) {
	t.Parallel()

	assert.True(t, AppStatus{SyncStatus: "Synced", HealthStatus: "Healthy"}.Ready())
	assert.False(t, AppStatus{SyncStatus: "OutOfSync", HealthStatus: "Healthy"}.Ready())
	assert.False(t, AppStatus{SyncStatus: "Synced", HealthStatus: "Degraded"}.Ready())
	assert.False(t, AppStatus{}.Ready())
}
