package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func TestDocumentInsertion(t *testing.T) {
	t.Run("observers run before the inserted script executes", func(t *testing.T) {
		doc := NewDocument()
		var order []string
		doc.Observe(func(n *html.Node) {
			order = append(order, "observe")
			doc.SetAttr(n, "type", "text/plain")
		})
		doc.SetExecutor(func(n *html.Node) { order = append(order, "execute") })

		doc.AppendChild(doc.Body(), NewElement(atom.Script))

		assert.Equal(t, []string{"observe"}, order)
		assert.Empty(t, doc.Executed())
	})

	t.Run("executable scripts run on insertion", func(t *testing.T) {
		doc := NewDocument()
		script := NewElement(atom.Script, html.Attribute{Key: "src", Val: "https://cdn.test/a.js"})

		doc.AppendChild(doc.Head(), script)

		require.Len(t, doc.Executed(), 1)
		assert.Same(t, script, doc.Executed()[0])
	})

	t.Run("cancelled observers are not called", func(t *testing.T) {
		doc := NewDocument()
		calls := 0
		cancel := doc.Observe(func(*html.Node) { calls++ })
		cancel()

		doc.AppendChild(doc.Body(), NewElement(atom.Div))
		assert.Zero(t, calls)
	})

	t.Run("replace keeps position", func(t *testing.T) {
		doc, err := ParseDocumentString(`<html><head></head><body><p id="a"></p><p id="b"></p></body></html>`)
		require.NoError(t, err)
		old := doc.FindByID("a")
		repl := NewElement(atom.Span, html.Attribute{Key: "id", Val: "c"})

		require.True(t, doc.ReplaceNode(old, repl))
		assert.Nil(t, doc.FindByID("a"))
		assert.Same(t, doc.FindByID("b"), repl.NextSibling)
	})

	t.Run("parsed scripts do not execute", func(t *testing.T) {
		doc, err := ParseDocumentString(`<html><head><script>var a=1</script></head></html>`)
		require.NoError(t, err)
		assert.Empty(t, doc.Executed())
	})
}

func TestIsExecutableScript(t *testing.T) {
	cases := map[string]bool{
		"":                 true,
		"text/javascript":  true,
		"module":           true,
		"text/plain":       false,
		"application/json": false,
	}
	for typ, want := range cases {
		n := NewElement(atom.Script)
		if typ != "" {
			n.Attr = append(n.Attr, html.Attribute{Key: "type", Val: typ})
		}
		assert.Equal(t, want, IsExecutableScript(n), "type %q", typ)
	}
}

func TestWindow(t *testing.T) {
	t.Run("script behaviours define globals", func(t *testing.T) {
		w, err := NewWindow("https://www.example.com/", nil)
		require.NoError(t, err)
		w.OnScript(ScriptSrcContains("fbevents.js"), func(w *Window, _ *html.Node) {
			w.Define("fbq", func(args ...any) any { return nil })
		})

		assert.False(t, w.Has("fbq"))
		w.Document.AppendChild(w.Document.Head(), NewElement(atom.Script,
			html.Attribute{Key: "src", Val: "https://connect.facebook.net/en_US/fbevents.js"}))
		assert.True(t, w.Has("fbq"))
	})

	t.Run("local hosts are detected", func(t *testing.T) {
		for _, raw := range []string{"http://localhost:8080/", "http://127.0.0.1/", "http://[::1]/"} {
			w, err := NewWindow(raw, nil)
			require.NoError(t, err)
			assert.True(t, w.IsLocalHost(), raw)
		}
	})

	t.Run("events reach listeners", func(t *testing.T) {
		w, err := NewWindow("https://example.com/", nil)
		require.NoError(t, err)
		var got []Event
		w.AddEventListener("esbilla:consent", func(e Event) { got = append(got, e) })
		w.DispatchEvent("esbilla:consent", "detail")
		require.Len(t, got, 1)
		assert.Equal(t, "detail", got[0].Detail)
	})
}

func TestConsentModeDefaultDeny(t *testing.T) {
	cm := NewConsentMode()
	for _, k := range ConsentModeKeys {
		assert.Equal(t, Denied, cm.State(k), k)
	}
	cm.Update(map[string]string{AnalyticsStorage: Granted})
	assert.True(t, cm.IsGranted(AnalyticsStorage))
	assert.False(t, cm.IsGranted(AdStorage))
	assert.Equal(t, 1, cm.Updates())
}
