package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatcart/internal/config"
	"chatcart/internal/core"
	"chatcart/internal/services"
	"chatcart/internal/storage"
)

func TestRunChat(t *testing.T) {
	p := core.NewProcessor(core.Config{
		Sessions: storage.NewSessionManager(time.Hour),
		Store:    storage.NewInMemoryStore(),
		Catalog:  services.NewProductService(config.CatalogConfig{CacheTTL: time.Minute}, nil),
	})

	in := strings.NewReader("show me fashion\nadd the first one\n/cart\n/order\n/quit\nnever read\n")
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), p, "u1", "Asha", in, &out))

	text := out.String()
	assert.Contains(t, text, "ChatFit: Good")
	assert.Contains(t, text, "Here are our top fashion picks:")
	assert.Contains(t, text, `✅ Added to cart: 1x "Designer Handbag".`)
	assert.Contains(t, text, "205  1x Designer Handbag (assistant)")
	assert.Contains(t, text, "Order placed. Total orders: 1")
	assert.NotContains(t, text, "never read")
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "chat", "greet"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
