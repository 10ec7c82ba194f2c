package main

import (
	"sort"
	"sync"

	"kotovm/koto"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"github.com/tliron/kutil/util"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "koto-ls"

var (
	version string = "0.1.0"
	handler protocol.Handler
	log     = commonlog.GetLogger("koto.ls")

	documentsMutex sync.RWMutex
	documents      = make(map[string]document)
)

// document is the last text the client sent for a URI.
type document struct {
	text    string
	version protocol.Integer
}

func main() {
	commonlog.Configure(1, nil)

	handler = protocol.Handler{
		Initialize:             initialize,
		Initialized:            initialized,
		Shutdown:               shutdown,
		SetTrace:               setTrace,
		TextDocumentDidOpen:    textDocumentDidOpen,
		TextDocumentDidChange:  textDocumentDidChange,
		TextDocumentDidClose:   textDocumentDidClose,
		TextDocumentCompletion: textDocumentCompletion,
	}

	s := server.NewServer(&handler, lsName, false)
	if err := s.RunStdio(); err != nil {
		log.Errorf("%s", err.Error())
		util.Exit(1)
	}
	util.Exit(0)
}

func initialize(context *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("initializing %s %s", lsName, version)

	capabilities := handler.CreateServerCapabilities()
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &[]bool{true}[0],
		Change:    &syncKind,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &version,
		},
	}, nil
}

func initialized(context *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func shutdown(context *glsp.Context) error {
	return nil
}

func setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// Diagnostics are published from inside the handler. glsp dispatches
// messages one at a time, so notifications leave in edit order.

func textDocumentDidOpen(context *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc := document{text: params.TextDocument.Text, version: params.TextDocument.Version}
	documentsMutex.Lock()
	documents[params.TextDocument.URI] = doc
	documentsMutex.Unlock()

	publishDiagnostics(context, params.TextDocument.URI, doc)
	return nil
}

func textDocumentDidChange(context *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	whole, ok := params.ContentChanges[len(params.ContentChanges)-1].(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}

	doc := document{text: whole.Text, version: params.TextDocument.Version}
	documentsMutex.Lock()
	if prev, ok := documents[params.TextDocument.URI]; ok && prev.version > doc.version {
		documentsMutex.Unlock()
		log.Debugf("dropping stale change %d for %s", doc.version, params.TextDocument.URI)
		return nil
	}
	documents[params.TextDocument.URI] = doc
	documentsMutex.Unlock()

	publishDiagnostics(context, params.TextDocument.URI, doc)
	return nil
}

func textDocumentDidClose(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	documentsMutex.Lock()
	delete(documents, params.TextDocument.URI)
	documentsMutex.Unlock()

	context.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func textDocumentCompletion(context *glsp.Context, params *protocol.CompletionParams) (any, error) {
	items := keywordCompletions()

	documentsMutex.RLock()
	doc, ok := documents[params.TextDocument.URI]
	documentsMutex.RUnlock()
	if !ok {
		return protocol.CompletionList{IsIncomplete: false, Items: items}, nil
	}

	kind := protocol.CompletionItemKindVariable
	detail := "global"
	for _, name := range declaredGlobals(doc.text) {
		items = append(items, protocol.CompletionItem{
			Label:  name,
			Kind:   &kind,
			Detail: &detail,
		})
	}
	return protocol.CompletionList{IsIncomplete: false, Items: items}, nil
}

// declaredGlobals returns the names introduced by `var` declarations in
// content, in order of first declaration.
func declaredGlobals(content string) []string {
	var names []string
	seen := make(map[string]bool)

	scanner := koto.NewScanner(content)
	prev := koto.Token{Type: koto.TokenEOF}
	for {
		tok := scanner.ScanToken()
		if tok.Type == koto.TokenEOF {
			break
		}
		if prev.Type == koto.TokenVar && tok.Type == koto.TokenIdentifier && !seen[tok.Lexeme] {
			seen[tok.Lexeme] = true
			names = append(names, tok.Lexeme)
		}
		prev = tok
	}
	return names
}

func keywordCompletions() []protocol.CompletionItem {
	words := koto.Keywords()
	sort.Strings(words)

	kind := protocol.CompletionItemKindKeyword
	detail := "keyword"
	items := make([]protocol.CompletionItem, 0, len(words))
	for _, word := range words {
		items = append(items, protocol.CompletionItem{
			Label:  word,
			Kind:   &kind,
			Detail: &detail,
		})
	}
	return items
}

func publishDiagnostics(context *glsp.Context, uri protocol.DocumentUri, doc document) {
	version := protocol.UInteger(doc.version)
	context.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: diagnose(doc.text),
	})
}

// diagnose compiles content and converts every reported compile error into
// an LSP diagnostic.
func diagnose(content string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	_, err := koto.Compile(content)
	errs, ok := err.(koto.CompileErrors)
	if !ok {
		return diagnostics
	}

	severity := protocol.DiagnosticSeverityError
	for _, e := range errs {
		source := lsName + " (compiler)"
		if e.Kind == koto.ErrorScan {
			source = lsName + " (scanner)"
		}
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lspRange(e),
			Severity: &severity,
			Source:   &source,
			Message:  e.Msg,
		})
	}
	return diagnostics
}

func lspRange(e *koto.KotoError) protocol.Range {
	line := e.Line - 1
	if line < 0 {
		line = 0
	}
	startChar := e.Column - 1
	if startChar < 0 {
		startChar = 0
	}
	length := e.Length
	if length < 1 {
		length = 1
	}

	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(startChar)},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(startChar + length)},
	}
}
