package token_management

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/meysamhadeli/codecompanion/constants/lipgloss"
	"github.com/meysamhadeli/codecompanion/embed_data"
	"github.com/meysamhadeli/codecompanion/token_management/contracts"
)

// TokenManager implementation
type tokenManager struct {
	mu              sync.Mutex
	usedToken       int
	usedInputToken  int
	usedOutputToken int
}

type details struct {
	MaxTokens                  int     `json:"max_tokens"`
	InputCostPerMillionTokens  float64 `json:"input_cost_per_million_tokens,omitempty"`
	OutputCostPerMillionTokens float64 `json:"output_cost_per_million_tokens,omitempty"`
	Mode                       string  `json:"mode"`
}

type Models struct {
	ModelDetails map[string]details `json:"models"`
}

var (
	priceTable     Models
	priceTableErr  error
	priceTableOnce sync.Once
)

// NewTokenManager creates a new token manager
func NewTokenManager() contracts.ITokenManagement {
	return &tokenManager{}
}

// UsedTokens accumulates the token count for the session.
func (tm *tokenManager) UsedTokens(inputToken int, outputToken int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.usedInputToken += inputToken
	tm.usedOutputToken += outputToken
	tm.usedToken += inputToken + outputToken
}

func (tm *tokenManager) Summary(chatProviderName string, chatModel string) string {
	total, input, output := tm.GetCurrentTokenUsage()
	cost := tm.CalculateCost(chatProviderName, chatModel, input, output)
	return fmt.Sprintf("Token Used: %d (input %d, output %d) - Cost: %.6f $ - Chat Model: %s", total, input, output, cost, chatModel)
}

func (tm *tokenManager) DisplayTokens(chatProviderName string, chatModel string) {
	fmt.Println(lipgloss.BoxStyle.Render(tm.Summary(chatProviderName, chatModel)))
}

func (tm *tokenManager) GetCurrentTokenUsage() (total int, input int, output int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.usedToken, tm.usedInputToken, tm.usedOutputToken
}

func (tm *tokenManager) ClearToken() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.usedToken = 0
	tm.usedInputToken = 0
	tm.usedOutputToken = 0
}

// CalculateCost prices token counts from the embedded table. Unknown
// models and local providers cost nothing.
func (tm *tokenManager) CalculateCost(providerName string, modelName string, inputToken int, outputToken int) float64 {
	modelDetails, err := getModelDetails(providerName, modelName)
	if err != nil {
		return 0
	}
	inputCost := float64(inputToken) * modelDetails.InputCostPerMillionTokens / 1000000.0
	outputCost := float64(outputToken) * modelDetails.OutputCostPerMillionTokens / 1000000.0

	return inputCost + outputCost
}

func getModelDetails(providerName string, modelName string) (details, error) {
	providerName = strings.ToLower(providerName)
	modelName = strings.ToLower(modelName)

	if providerName == "ollama" {
		return details{}, fmt.Errorf("local provider '%s' has no pricing", providerName)
	}

	priceTableOnce.Do(func() {
		priceTable = Models{ModelDetails: make(map[string]details)}
		priceTableErr = json.Unmarshal(embed_data.ModelDetails, &priceTable)
	})
	if priceTableErr != nil {
		return details{}, fmt.Errorf("error unmarshaling model prices: %w", priceTableErr)
	}

	model, exists := priceTable.ModelDetails[modelName]
	if !exists {
		return details{}, fmt.Errorf("model details price with name '%s' not found for provider '%s'", modelName, providerName)
	}

	return model, nil
}
