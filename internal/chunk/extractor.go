package chunk

// SymbolExtractor walks a parsed tree and reports the byte offsets where
// top-level symbols (functions, methods, classes, types) end, for use as
// preferred break points by the splitter's structural enrichment pass.
type SymbolExtractor struct {
	registry *LanguageRegistry
}

// NewSymbolExtractor creates a new symbol extractor using the default registry.
func NewSymbolExtractor() *SymbolExtractor {
	return &SymbolExtractor{registry: DefaultRegistry()}
}

// NewSymbolExtractorWithRegistry creates a new symbol extractor with a custom registry.
func NewSymbolExtractorWithRegistry(registry *LanguageRegistry) *SymbolExtractor {
	return &SymbolExtractor{registry: registry}
}

// Extract returns the boundary symbols found in tree, in document order.
func (e *SymbolExtractor) Extract(tree *Tree) []*Symbol {
	if tree == nil || tree.Root == nil {
		return []*Symbol{}
	}
	config, ok := e.registry.GetByName(tree.Language)
	if !ok {
		return []*Symbol{}
	}

	symbolTypes := make(map[string]SymbolType)
	for _, t := range config.FunctionTypes {
		symbolTypes[t] = SymbolTypeFunction
	}
	for _, t := range config.MethodTypes {
		symbolTypes[t] = SymbolTypeMethod
	}
	for _, t := range config.ClassTypes {
		symbolTypes[t] = SymbolTypeClass
	}
	for _, t := range config.InterfaceTypes {
		symbolTypes[t] = SymbolTypeInterface
	}
	for _, t := range config.TypeDefTypes {
		symbolTypes[t] = SymbolTypeType
	}
	for _, t := range config.ConstantTypes {
		symbolTypes[t] = SymbolTypeConstant
	}
	for _, t := range config.VariableTypes {
		symbolTypes[t] = SymbolTypeVariable
	}

	symbols := []*Symbol{}
	tree.Root.Walk(func(n *Node) bool {
		if symType, ok := symbolTypes[n.Type]; ok {
			symbols = append(symbols, &Symbol{
				Type:      symType,
				StartLine: int(n.StartPoint.Row) + 1,
				EndLine:   int(n.EndPoint.Row) + 1,
				EndByte:   n.EndByte,
			})
		}
		return true
	})
	return symbols
}
