package contracts

type ITokenManagement interface {
	UsedTokens(inputToken int, outputToken int)
	CalculateCost(providerName string, modelName string, inputToken int, outputToken int) float64
	Summary(chatProviderName string, chatModel string) string
	DisplayTokens(chatProviderName string, chatModel string)
	GetCurrentTokenUsage() (total int, input int, output int)
	ClearToken()
}
