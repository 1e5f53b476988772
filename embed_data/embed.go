package embed_data

import _ "embed"

//go:embed prompts/role.md
var RolePrompt []byte

//go:embed prompts/response_guidelines.md
var ResponseGuidelinesPrompt []byte

//go:embed models_details/model_prices.json
var ModelDetails []byte

//go:embed tree-sitter/queries/csharp.json
var CSharpQuery []byte

//go:embed tree-sitter/queries/go.json
var GoQuery []byte

//go:embed tree-sitter/queries/python.json
var PythonQuery []byte

//go:embed tree-sitter/queries/java.json
var JavaQuery []byte

//go:embed tree-sitter/queries/javascript.json
var JavascriptQuery []byte

//go:embed tree-sitter/queries/typescript.json
var TypescriptQuery []byte
