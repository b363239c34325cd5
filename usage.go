package sitegen

// Usage tracks token consumption of one model turn. InputTokens excludes
// cached tokens; total input = InputTokens + CacheReadTokens + CacheWriteTokens.
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}
