package loader_test

import (
	"errors"
	"testing"

	"mrbox/core/loader"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockFeature struct {
	mock.Mock
	name string
}

func (m *mockFeature) Name() string { return m.name }

func (m *mockFeature) IsEnabled() bool {
	return m.Called().Bool(0)
}

func (m *mockFeature) Load(app fiber.Router) error {
	return m.Called(app).Error(0)
}

func TestLoadAll(t *testing.T) {
	enabled := &mockFeature{name: "status"}
	enabled.On("IsEnabled").Return(true)
	enabled.On("Load", mock.Anything).Return(nil).Once()

	disabled := &mockFeature{name: "off"}
	disabled.On("IsEnabled").Return(false)

	mgr := loader.NewManager(zap.NewNop())
	mgr.Register(enabled)
	mgr.Register(disabled)
	require.Len(t, mgr.Features(), 2)

	require.NoError(t, mgr.LoadAll(fiber.New()))
	enabled.AssertExpectations(t)
	disabled.AssertNotCalled(t, "Load", mock.Anything)
}

func TestLoadAll_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	failing := &mockFeature{name: "failing"}
	failing.On("IsEnabled").Return(true)
	failing.On("Load", mock.Anything).Return(boom)

	next := &mockFeature{name: "next"}
	next.On("IsEnabled").Return(true)

	mgr := loader.NewManager(zap.NewNop())
	mgr.Register(failing)
	mgr.Register(next)

	err := mgr.LoadAll(fiber.New())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	next.AssertNotCalled(t, "Load", mock.Anything)
}
