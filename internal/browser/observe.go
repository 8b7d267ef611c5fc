// internal/browser/observe.go
package browser

// observeScript is evaluated in the page to produce the structured
// observation. It tags every interactive element with a stable data-wf-ref
// attribute so later actions can target elements by reference instead of
// brittle selectors. Re-running the script reassigns refs in DOM order, so
// refs are only valid against the observation they came from.
const observeScript = `
(() => {
  const visible = (el) => {
    const style = window.getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden') return false;
    const rect = el.getBoundingClientRect();
    return rect.width > 0 && rect.height > 0;
  };

  const textOf = (el) => {
    const aria = el.getAttribute('aria-label');
    if (aria) return aria.trim();
    if (el.labels && el.labels.length > 0) return el.labels[0].innerText.trim();
    const placeholder = el.getAttribute('placeholder');
    if (placeholder) return placeholder.trim();
    const alt = el.getAttribute('alt');
    if (alt) return alt.trim();
    const txt = (el.innerText || el.value || '').trim();
    if (txt) return txt.slice(0, 80);
    return (el.getAttribute('name') || el.getAttribute('title') || '').trim();
  };

  const roleOf = (el) => {
    const explicit = el.getAttribute('role');
    if (explicit) return explicit;
    switch (el.tagName) {
      case 'A': return 'link';
      case 'BUTTON': return 'button';
      case 'SELECT': return 'select';
      case 'TEXTAREA': return 'textbox';
      case 'INPUT': {
        const t = (el.type || 'text').toLowerCase();
        if (t === 'submit' || t === 'button') return 'button';
        if (t === 'checkbox') return 'checkbox';
        if (t === 'radio') return 'radio';
        if (t === 'search') return 'searchbox';
        return 'textbox';
      }
      default: return el.tagName.toLowerCase();
    }
  };

  const headings = [];
  for (const h of document.querySelectorAll('h1, h2, h3')) {
    const t = h.innerText.trim();
    if (t && visible(h)) headings.push(t.slice(0, 120));
    if (headings.length >= 10) break;
  }

  const navLinks = [];
  for (const a of document.querySelectorAll('nav a, header a, [role="navigation"] a')) {
    const t = a.innerText.trim();
    if (t && visible(a) && !navLinks.includes(t)) navLinks.push(t.slice(0, 80));
    if (navLinks.length >= 15) break;
  }

  const interactive = [];
  let n = 0;
  for (const el of document.querySelectorAll('a[href], button, input, select, textarea, [role="button"], [onclick]')) {
    if (!visible(el)) continue;
    const ref = 'el_' + n;
    el.setAttribute('data-wf-ref', ref);
    n++;
    interactive.push({
      ref: ref,
      role: roleOf(el),
      name: textOf(el),
      value: el.tagName === 'INPUT' || el.tagName === 'TEXTAREA' ? (el.value || '') : '',
      disabled: !!el.disabled,
      focused: el === document.activeElement,
    });
    if (interactive.length >= 50) break;
  }

  const lower = document.body ? document.body.innerText.toLowerCase() : '';
  const hasSearch = !!document.querySelector('input[type="search"], input[name*="search" i], input[placeholder*="search" i], [role="search"]');
  const hasHelp = !!Array.from(document.querySelectorAll('a[href]')).find((a) => {
    const t = (a.innerText || '').toLowerCase();
    const href = (a.getAttribute('href') || '').toLowerCase();
    return t.includes('help') || t.includes('support') || t.includes('faq') || href.includes('help') || href.includes('support') || href.includes('faq');
  }) || lower.includes('help center');

  return JSON.stringify({
    url: window.location.href,
    title: document.title,
    headings: headings,
    nav_links: navLinks,
    interactive: interactive,
    has_search: hasSearch,
    has_help: hasHelp,
  });
})()
`

// searchSubmitScript fills the site search box and submits its form,
// falling back to an Enter key dispatch when the input is formless.
const searchSubmitScript = `
((query) => {
  const input = document.querySelector('input[type="search"], input[name*="search" i], input[placeholder*="search" i], [role="search"] input');
  if (!input) return 'no search input found';
  input.focus();
  const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set;
  setter.call(input, query);
  input.dispatchEvent(new Event('input', { bubbles: true }));
  if (input.form) {
    if (input.form.requestSubmit) { input.form.requestSubmit(); } else { input.form.submit(); }
    return 'submitted search form';
  }
  input.dispatchEvent(new KeyboardEvent('keydown', { key: 'Enter', bubbles: true }));
  return 'dispatched enter on search input';
})
`

// helpLinkScript clicks the most plausible help link on the page.
const helpLinkScript = `
(() => {
  const link = Array.from(document.querySelectorAll('a[href]')).find((a) => {
    const t = (a.innerText || '').toLowerCase();
    const href = (a.getAttribute('href') || '').toLowerCase();
    return t.includes('help') || t.includes('support') || t.includes('faq') || href.includes('help') || href.includes('support') || href.includes('faq');
  });
  if (!link) return 'no help link found';
  link.click();
  return 'clicked help link: ' + (link.innerText || link.getAttribute('href')).trim().slice(0, 60);
})()
`
