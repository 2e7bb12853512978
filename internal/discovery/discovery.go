// internal/discovery/discovery.go
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var jsonIter = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrDiscoveryFailed wraps any browser-driver failure during a discovery pass
// (detached page, navigation in flight, script evaluation error). Callers must
// not assume partial results when this is returned.
var ErrDiscoveryFailed = errors.New("element discovery failed")

// Evaluator is the slice of the browser session the discoverer needs. The
// production implementation lives in internal/browser; tests supply a fake.
type Evaluator interface {
	// EvaluateScript runs the script in the page and returns its JSON result.
	EvaluateScript(ctx context.Context, script string) (json.RawMessage, error)
}

// discoverScript enumerates candidate elements per structural bucket and
// extracts the attributes downstream matching needs. It runs in one shot so a
// single page evaluation yields a consistent snapshot.
const discoverScript = `(() => {
	const selectorFor = (el) => {
		if (el.id) return '#' + CSS.escape(el.id);
		const testId = el.getAttribute('data-testid') || el.getAttribute('data-test-id');
		if (testId) return '[data-testid="' + testId + '"]';
		const parts = [];
		let node = el;
		while (node && node.nodeType === 1 && parts.length < 4) {
			let part = node.tagName.toLowerCase();
			if (node.id) { parts.unshift('#' + CSS.escape(node.id)); break; }
			const parent = node.parentElement;
			if (parent) {
				const siblings = Array.from(parent.children).filter(c => c.tagName === node.tagName);
				if (siblings.length > 1) part += ':nth-of-type(' + (siblings.indexOf(node) + 1) + ')';
			}
			parts.unshift(part);
			node = parent;
		}
		return parts.join(' > ');
	};
	const describe = (el) => {
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		const visible = rect.width > 0 && rect.height > 0 &&
			style.visibility !== 'hidden' && style.display !== 'none';
		return {
			text: (el.innerText || el.value || '').trim().slice(0, 200),
			ariaLabel: el.getAttribute('aria-label') || '',
			testId: el.getAttribute('data-testid') || el.getAttribute('data-test-id') || '',
			box: { x: rect.x, y: rect.y, width: rect.width, height: rect.height },
			visible: visible,
			enabled: !el.disabled,
			selector: selectorFor(el),
		};
	};
	const collect = (sel) => Array.from(document.querySelectorAll(sel)).map(describe);
	return {
		buttons: collect('button, [role="button"], input[type="button"], input[type="submit"]'),
		links: collect('a[href]'),
		inputs: collect('input:not([type="button"]):not([type="submit"]), textarea, select'),
		navigation: collect('nav a, nav button, [role="navigation"] a, [role="menuitem"]'),
		interactive: collect('[onclick], [tabindex], [role="tab"], [role="switch"], [role="checkbox"], summary'),
		content: collect('h1, h2, h3, [role="heading"], label'),
	};
})()`

// rawSnapshot mirrors the JSON shape returned by discoverScript.
type rawSnapshot struct {
	Buttons     []Element `json:"buttons"`
	Links       []Element `json:"links"`
	Inputs      []Element `json:"inputs"`
	Navigation  []Element `json:"navigation"`
	Interactive []Element `json:"interactive"`
	Content     []Element `json:"content"`
}

// Discoverer enumerates interactable elements on a live page.
type Discoverer struct {
	logger *zap.Logger
}

// New creates a Discoverer.
func New(logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{logger: logger.Named("discovery")}
}

// Discover runs one discovery pass against the page. The returned snapshot is
// immediately stale once the page mutates; re-run rather than cache it across
// navigations. An empty page yields an empty snapshot, not an error.
func (d *Discoverer) Discover(ctx context.Context, page Evaluator) (*Snapshot, error) {
	raw, err := page.EvaluateScript(ctx, discoverScript)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscoveryFailed, err)
	}

	var rs rawSnapshot
	if err := jsonIter.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("%w: decoding page result: %v", ErrDiscoveryFailed, err)
	}

	snap := &Snapshot{}
	for _, pair := range []struct {
		cat Category
		els []Element
	}{
		{Buttons, rs.Buttons},
		{Links, rs.Links},
		{Inputs, rs.Inputs},
		{Navigation, rs.Navigation},
		{Interactive, rs.Interactive},
		{Content, rs.Content},
	} {
		for _, el := range pair.els {
			el.Category = pair.cat
			snap.Add(el)
		}
	}

	d.logger.Debug("Discovery pass complete", zap.Int("elements", snap.Len()))
	return snap, nil
}
