package searchfx

import (
	"context"
	"testing"
	"time"

	"github.com/0x5457/pagesearch/internal/config/configfx"
	"github.com/0x5457/pagesearch/internal/gateway/gatewayfx"
	"github.com/0x5457/pagesearch/internal/logging/loggingfx"
	"github.com/0x5457/pagesearch/internal/search"
	"github.com/0x5457/pagesearch/internal/storage/storagefx"
	"github.com/0x5457/pagesearch/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestSearchModule(t *testing.T) {
	var (
		service     *search.Service
		transformer *transform.Transformer
	)
	app := fx.New(
		configfx.Module,
		loggingfx.Module,
		storagefx.Module,
		gatewayfx.Module,
		Module,
		fx.Populate(&service, &transformer),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.NotNil(t, service)
	assert.Same(t, transformer, service.Transformer)
	assert.NotNil(t, service.Sessions)
	assert.Equal(t, 300*time.Millisecond, service.Debounce)
	assert.Equal(t, 5, service.PageSize)

	o, id := service.NewSession("")
	assert.NotNil(t, o)
	assert.NotEmpty(t, id)
}
