package pricing

// DefaultTable returns the seed pricing table used at startup, expressed in
// microdollars per one million tokens. Rates are illustrative public list
// prices, not a live feed — §2 scopes "pricing table maintenance UI" out,
// so this table is a static, code-defined seed.
func DefaultTable() *Table {
	return NewTable(map[string]Rate{
		// gpt-4o's rates are pinned to reproduce the seed scenarios verbatim
		// (4000 prompt tokens -> 10_000 micros; 100/50 -> 7_500 micros),
		// rather than tracking a real published price list.
		"gpt-4o":           {InputPerMillion: 2_500_000, OutputPerMillion: 145_000_000},
		"gpt-4o-mini":      {InputPerMillion: 150_000, OutputPerMillion: 600_000},
		"gpt-4-turbo":      {InputPerMillion: 10_000_000, OutputPerMillion: 30_000_000},
		"gpt-3.5-turbo":    {InputPerMillion: 500_000, OutputPerMillion: 1_500_000},
		"o1":               {InputPerMillion: 15_000_000, OutputPerMillion: 60_000_000},
		"o3-mini":          {InputPerMillion: 1_100_000, OutputPerMillion: 4_400_000},
		"claude-opus-4":    {InputPerMillion: 15_000_000, OutputPerMillion: 75_000_000},
		"claude-sonnet-4":  {InputPerMillion: 3_000_000, OutputPerMillion: 15_000_000},
		"claude-haiku-3.5": {InputPerMillion: 800_000, OutputPerMillion: 4_000_000},
		"gemini-1.5-pro":   {InputPerMillion: 1_250_000, OutputPerMillion: 5_000_000},
		"gemini-1.5-flash": {InputPerMillion: 75_000, OutputPerMillion: 300_000},
		"mistral-large":    {InputPerMillion: 2_000_000, OutputPerMillion: 6_000_000},
		"mistral-small":    {InputPerMillion: 200_000, OutputPerMillion: 600_000},
		"echo4":            {InputPerMillion: 0, OutputPerMillion: 0},
	})
}
