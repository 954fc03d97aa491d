package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mind-engage/realfake-survey/internal/config"
	"github.com/mind-engage/realfake-survey/internal/labels"
)

func writeLabels(t *testing.T, nReal, nFake int) string {
	t.Helper()
	m := map[string]bool{}
	for i := 0; i < nReal; i++ {
		m[fmt.Sprintf("r%d.png", i)] = true
	}
	for i := 0; i < nFake; i++ {
		m[fmt.Sprintf("f%d.png", i)] = false
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "labels.json")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func TestBuildDeck(t *testing.T) {
	c := config.Default()
	c.LabelsURL = writeLabels(t, 6, 6)
	c.ExamplesPerClass = 1
	c.SamplesPerClass = 4
	c.Seed = 9

	deck, err := buildDeck(context.Background(), c, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 8, deck.Len())
}

func TestBuildDeck_Unbalanced(t *testing.T) {
	c := config.Default()
	c.LabelsURL = writeLabels(t, 6, 3)
	c.ExamplesPerClass = 1

	_, err := buildDeck(context.Background(), c, zap.NewNop())
	assert.True(t, errors.Is(err, labels.ErrUnbalanced), "got %v", err)
}

func TestDeckCommand(t *testing.T) {
	t.Setenv("LABELS_URL", writeLabels(t, 4, 4))
	t.Setenv("EXAMPLES_PER_CLASS", "1")
	t.Setenv("SEED", "3")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"deck"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	var deck labels.Deck
	require.NoError(t, json.Unmarshal(out.Bytes(), &deck))
	assert.Len(t, deck.ExamplesReal, 1)
	assert.Len(t, deck.ExamplesFake, 1)
	assert.Equal(t, 6, deck.Len())
}

func TestWarnInsecureDefaults(t *testing.T) {
	cases := []struct {
		name      string
		secret    string
		publicURL string
		warn      bool
	}{
		{"default secret over https", config.DefaultSecretKey, "https://survey.example", true},
		{"default secret locally", config.DefaultSecretKey, "http://localhost:8080", false},
		{"custom secret over https", "a-real-secret", "https://survey.example", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			c := config.Default()
			c.SecretKey = tc.secret
			c.PublicURL = tc.publicURL

			warnInsecureDefaults(c, zap.New(core))

			if !tc.warn {
				assert.Zero(t, logs.Len())
				return
			}
			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Contains(t, entry.Message, "default secret key")
			assert.Equal(t, tc.publicURL, entry.ContextMap()["public_url"])
		})
	}
}
