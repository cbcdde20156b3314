package viewer

import (
	"context"
	"testing"

	"github.com/mistriapp/mistri/server/mistri"
	"github.com/stretchr/testify/assert"
)

var (
	nilViewer      = Viewer{}
	customerViewer = Viewer{
		User: &mistri.User{ID: "c1", Name: "Asha", Role: mistri.RoleCustomer},
	}
	workerViewer = Viewer{
		User: &mistri.User{ID: "w1", Name: "Ravi", Role: mistri.RoleWorker},
	}
	adminViewer = Viewer{
		User: &mistri.User{ID: "a1", Name: "Root", Role: mistri.RoleAdmin},
	}
)

func TestContext(t *testing.T) {
	ctx := NewContext(context.Background(), customerViewer)
	v, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, customerViewer, v)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestIsLoggedIn(t *testing.T) {
	assert.False(t, nilViewer.IsLoggedIn())
	assert.True(t, customerViewer.IsLoggedIn())
	assert.True(t, workerViewer.IsLoggedIn())
}

func TestRoles(t *testing.T) {
	assert.True(t, customerViewer.IsCustomer())
	assert.False(t, customerViewer.IsWorker())
	assert.False(t, customerViewer.IsAdmin())

	assert.True(t, workerViewer.IsWorker())
	assert.True(t, adminViewer.IsAdmin())

	assert.False(t, nilViewer.IsCustomer())
	assert.False(t, nilViewer.IsWorker())
	assert.False(t, nilViewer.IsAdmin())
}

func TestIsUserID(t *testing.T) {
	assert.True(t, workerViewer.IsUserID("w1"))
	assert.False(t, workerViewer.IsUserID("w2"))
	assert.False(t, nilViewer.IsUserID("w1"))
}
