package token_management

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenManager_AccumulatesAndClears(t *testing.T) {
	tm := NewTokenManager()

	tm.UsedTokens(100, 20)
	tm.UsedTokens(50, 5)

	total, input, output := tm.GetCurrentTokenUsage()
	assert.Equal(t, 175, total)
	assert.Equal(t, 150, input)
	assert.Equal(t, 25, output)

	tm.ClearToken()
	total, _, _ = tm.GetCurrentTokenUsage()
	assert.Zero(t, total)
}

func TestTokenManager_CalculateCost(t *testing.T) {
	tm := NewTokenManager()

	assert.InDelta(t, 5.0+25.0, tm.CalculateCost("openrouter", "x-ai/grok-3-fast", 1_000_000, 1_000_000), 1e-9)
	assert.InDelta(t, 0.0, tm.CalculateCost("openrouter", "unknown/model", 1000, 1000), 1e-9)
	assert.InDelta(t, 0.0, tm.CalculateCost("ollama", "x-ai/grok-3-fast", 1000, 1000), 1e-9)
}

func TestTokenManager_Summary(t *testing.T) {
	tm := NewTokenManager()
	tm.UsedTokens(1000, 0)

	summary := tm.Summary("openrouter", "x-ai/grok-3-fast")

	assert.Contains(t, summary, "Token Used: 1000")
	assert.Contains(t, summary, "0.005000 $")
	assert.Contains(t, summary, "x-ai/grok-3-fast")
}

func TestTokenManager_ConcurrentUse(t *testing.T) {
	tm := NewTokenManager()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.UsedTokens(1, 1)
		}()
	}
	wg.Wait()

	total, _, _ := tm.GetCurrentTokenUsage()
	assert.Equal(t, 100, total)
}
