package web

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
	"github.com/sloppy/tychostore/internal/export"
)

func render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!doctype html><html lang=\"en\"><head>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<meta charset=\"utf-8\">"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<title>%s</title>", html.EscapeString(title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, layoutStyles); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</head><body><main class=\"shell\">"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</main></body></html>"); err != nil {
			return err
		}
		return nil
	})
}

func chainsPage(chains []evm.Chain) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<header class=\"page-header\"><p class=\"eyebrow\">tycho-store</p><h1>Chains</h1><p class=\"subhead\">Indexed chains with versioned contract storage.</p></header>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<section class=\"card\">"); err != nil {
			return err
		}
		if len(chains) == 0 {
			_, err := io.WriteString(w, "<p class=\"empty\">Nothing imported yet. Run tycho-store import first.</p></section>")
			return err
		}
		if _, err := io.WriteString(w, "<ul class=\"link-list\">"); err != nil {
			return err
		}
		for _, c := range chains {
			name := html.EscapeString(c.String())
			if _, err := fmt.Fprintf(w, "<li><a href=\"/chains/%s\">%s</a></li>", name, name); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul></section>")
		return err
	})
	return layout("tycho-store - Chains", body)
}

func contractsPage(chain evm.Chain, contracts []db.ContractRow) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		name := html.EscapeString(chain.String())
		if _, err := fmt.Fprintf(w, "<header class=\"page-header\"><a class=\"back-link\" href=\"/chains\">All chains</a><p class=\"eyebrow\">Chain</p><h1>%s</h1></header>", name); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<section class=\"card\"><h2>Contracts</h2>"); err != nil {
			return err
		}
		if len(contracts) == 0 {
			_, err := io.WriteString(w, "<p class=\"empty\">No contracts stored.</p></section>")
			return err
		}
		if _, err := io.WriteString(w, "<table class=\"data-table\"><thead><tr><th>Address</th><th>Title</th><th>Created</th><th>Status</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, c := range contracts {
			status := "live"
			if c.DeletedAt != nil {
				status = "deleted " + formatTime(*c.DeletedAt)
			}
			if _, err := fmt.Fprintf(w, "<tr><td class=\"mono\"><a href=\"/chains/%s/contracts/%s\">%s</a></td><td>%s</td><td>%s</td><td>%s</td></tr>",
				name, c.Address.Hex(), c.Address.Hex(), html.EscapeString(c.Title), formatTime(c.CreatedAt), status); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table></section>")
		return err
	})
	return layout("tycho-store - "+chain.String(), body)
}

func contractPage(contract export.ContractExport) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		chain := html.EscapeString(contract.Chain.String())
		if _, err := fmt.Fprintf(w, "<header class=\"page-header\"><a class=\"back-link\" href=\"/chains/%s\">%s contracts</a><p class=\"eyebrow\">Contract</p><h1 class=\"mono\">%s</h1><p class=\"subhead\">%s</p></header>",
			chain, chain, contract.Address.Hex(), html.EscapeString(contract.Title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<section class=\"card\"><form method=\"get\" class=\"version-form\"><label for=\"version\">Version</label><input id=\"version\" name=\"version\" placeholder=\"latest, block number, 0x block hash or RFC3339 time\"><button type=\"submit\">Show</button></form></section>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<section class=\"card\"><dl class=\"meta\">"); err != nil {
			return err
		}
		meta := [][2]string{
			{"Version", contract.Version},
			{"Balance", contract.Balance},
			{"Code hash", contract.CodeHash.Hex()},
			{"Balance modified in", contract.BalanceModifyTx.Hex()},
			{"Code modified in", contract.CodeModifyTx.Hex()},
		}
		if contract.CreationTx != nil {
			meta = append(meta, [2]string{"Created in", contract.CreationTx.Hex()})
		}
		for _, m := range meta {
			if _, err := fmt.Fprintf(w, "<div><dt>%s</dt><dd class=\"mono\">%s</dd></div>", m[0], html.EscapeString(m[1])); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</dl></section><section class=\"card\"><h2>Storage</h2>"); err != nil {
			return err
		}
		if len(contract.Slots) == 0 {
			_, err := io.WriteString(w, "<p class=\"empty\">No slots at this version.</p></section>")
			return err
		}
		if _, err := io.WriteString(w, "<table class=\"data-table\"><thead><tr><th>Slot</th><th>Value</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, s := range contract.Slots {
			if _, err := fmt.Fprintf(w, "<tr><td class=\"mono\">%s</td><td class=\"mono\">%s</td></tr>", s.Slot, s.Value); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table></section>")
		return err
	})
	return layout("tycho-store - "+contract.Address.Hex(), body)
}

const layoutStyles = `<style>
:root {
  color-scheme: light;
  --bg: #f6f1e8;
  --bg-accent: #e2eef0;
  --ink: #1f262d;
  --muted: #5c6c73;
  --card: rgba(255, 255, 255, 0.78);
  --stroke: rgba(31, 38, 45, 0.12);
  --accent: #2f6f6d;
  --accent-dark: #1e4f52;
  --shadow: 0 16px 40px rgba(15, 23, 28, 0.12);
}

* {
  box-sizing: border-box;
}

body {
  margin: 0;
  min-height: 100vh;
  font-family: "Iowan Old Style", "Palatino Linotype", "Book Antiqua", serif;
  color: var(--ink);
  background: radial-gradient(circle at 20% 20%, var(--bg-accent), transparent 45%),
    linear-gradient(135deg, #fbf7ef, var(--bg));
}

.shell {
  max-width: 980px;
  margin: 0 auto;
  padding: 48px 24px 72px;
  display: grid;
  gap: 24px;
}

.page-header h1 {
  margin: 8px 0;
  font-size: clamp(1.4rem, 3vw, 2.2rem);
  word-break: break-all;
}

.eyebrow {
  text-transform: uppercase;
  letter-spacing: 0.24em;
  font-size: 0.72rem;
  color: var(--muted);
  margin: 0;
}

.subhead,
.empty {
  margin: 0;
  color: var(--muted);
}

.card {
  background: var(--card);
  border: 1px solid var(--stroke);
  border-radius: 16px;
  padding: 20px 22px;
  box-shadow: var(--shadow);
}

.back-link {
  color: var(--accent);
  text-decoration: none;
  font-size: 0.9rem;
}

.link-list {
  list-style: none;
  margin: 0;
  padding: 0;
  display: grid;
  gap: 10px;
}

.version-form {
  display: flex;
  gap: 12px;
  align-items: center;
  flex-wrap: wrap;
}

input {
  flex: 1;
  min-width: 220px;
  border-radius: 10px;
  border: 1px solid var(--stroke);
  padding: 10px 12px;
  font-family: inherit;
}

button {
  border: none;
  border-radius: 999px;
  padding: 10px 18px;
  background: var(--accent);
  color: white;
  cursor: pointer;
}

button:hover {
  background: var(--accent-dark);
}

.meta {
  display: grid;
  gap: 10px;
  margin: 0;
}

.meta dt {
  font-size: 0.8rem;
  text-transform: uppercase;
  color: var(--muted);
}

.meta dd {
  margin: 0;
  word-break: break-all;
}

.data-table {
  width: 100%;
  border-collapse: collapse;
}

.data-table th,
.data-table td {
  text-align: left;
  padding: 8px 10px;
  border-bottom: 1px solid var(--stroke);
}

.mono {
  font-family: "SFMono-Regular", Menlo, Consolas, monospace;
  font-size: 0.9rem;
}
</style>`
