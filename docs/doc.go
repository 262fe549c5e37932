// Package docs provides generated OpenAPI documentation.
//
// problembook API
//
//	@title			problembook API
//	@version		1.0
//	@description	Textbook OCR pipeline: ingest PDFs, extract problems, solve them with LLMs and export study material.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/problembook
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/problembook/serve.go -o . --outputTypes go --parseDependency --parseInternal
