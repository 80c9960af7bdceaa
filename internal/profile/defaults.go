package profile

// 内置 agent 集合；部署时可通过 profiles 文件覆盖个别字段，但不能新增 id。
var builtin = []AgentProfile{
	{
		ID:              "DEEPSEEK",
		DisplayName:     "DeepSeek",
		Avatar:          "/avatars/deepseek.png",
		Risk:            RiskMedium,
		MinVolume:       50000,
		MinLiquidity:    10000,
		MaxTrades:       3,
		FocusCategories: []string{"crypto", "economy"},
		Weights:         Weights{Volume: 1.0, Liquidity: 0.8, PriceMovement: 1.2, News: 1.0, Probability: 0.6},
		MinConfidence:   0.60,
		MaxPositionUSD:  500,
		Persona:         "Quantitative and momentum-driven. Looks for mispriced odds after sharp moves.",
	},
	{
		ID:              "GPT",
		DisplayName:     "GPT",
		Avatar:          "/avatars/gpt.png",
		Risk:            RiskMedium,
		MinVolume:       75000,
		MinLiquidity:    15000,
		MaxTrades:       3,
		FocusCategories: []string{"elections", "politics"},
		Weights:         Weights{Volume: 0.9, Liquidity: 0.9, PriceMovement: 0.8, News: 1.4, Probability: 0.7},
		MinConfidence:   0.62,
		MaxPositionUSD:  450,
		Persona:         "News-first generalist. Weighs fresh reporting heavily before taking a side.",
	},
	{
		ID:              "GEMINI",
		DisplayName:     "Gemini",
		Avatar:          "/avatars/gemini.png",
		Risk:            RiskLow,
		MinVolume:       100000,
		MinLiquidity:    25000,
		MaxTrades:       2,
		FocusCategories: []string{"tech", "science"},
		Weights:         Weights{Volume: 1.2, Liquidity: 1.3, PriceMovement: 0.5, News: 0.9, Probability: 1.0},
		MinConfidence:   0.70,
		MaxPositionUSD:  300,
		Persona:         "Conservative. Prefers deep, liquid markets and near-resolved outcomes.",
	},
	{
		ID:              "GROK",
		DisplayName:     "Grok",
		Avatar:          "/avatars/grok.png",
		Risk:            RiskHigh,
		MinVolume:       25000,
		MinLiquidity:    5000,
		MaxTrades:       5,
		FocusCategories: []string{"crypto", "culture", "sports"},
		Weights:         Weights{Volume: 0.7, Liquidity: 0.5, PriceMovement: 1.5, News: 1.1, Probability: 0.4},
		MinConfidence:   0.55,
		MaxPositionUSD:  800,
		Persona:         "Contrarian and fast. Chases volatility and social momentum.",
	},
	{
		ID:              "QWEN",
		DisplayName:     "Qwen",
		Avatar:          "/avatars/qwen.png",
		Risk:            RiskMedium,
		MinVolume:       50000,
		MinLiquidity:    10000,
		MaxTrades:       3,
		FocusCategories: []string{"geopolitics", "economy"},
		Weights:         Weights{Volume: 1.0, Liquidity: 1.0, PriceMovement: 1.0, News: 1.0, Probability: 1.0},
		MinConfidence:   0.60,
		MaxPositionUSD:  400,
		Persona:         "Balanced macro view. Treats every factor evenly.",
	},
	{
		ID:              "KIMI",
		DisplayName:     "Kimi",
		Avatar:          "/avatars/kimi.png",
		Risk:            RiskLow,
		MinVolume:       80000,
		MinLiquidity:    20000,
		MaxTrades:       2,
		FocusCategories: []string{"sports"},
		Weights:         Weights{Volume: 1.1, Liquidity: 1.2, PriceMovement: 0.6, News: 0.8, Probability: 1.2},
		MinConfidence:   0.68,
		MaxPositionUSD:  250,
		Persona:         "Patient. Waits for lopsided odds with strong liquidity.",
	},
}

// Builtin 返回内置 profile 的副本。
func Builtin() []AgentProfile {
	out := make([]AgentProfile, len(builtin))
	for i, p := range builtin {
		out[i] = p.clone()
	}
	return out
}

// DefaultRegistry 使用内置 profile 构建 Registry。
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic(err)
	}
	return r
}
