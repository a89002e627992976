package browser

const overlayID = "element-locator-overlay"

// locateFn walks document.documentElement along an element-child index path.
const locateFn = `const locate = (path) => {
	let el = document.documentElement;
	for (const i of path) {
		if (!el) return null;
		el = el.children[i];
	}
	return el || null;
};`

const hoverScript = `(path) => {
	` + locateFn + `
	const el = locate(path);
	if (!el) return false;
	el.dispatchEvent(new MouseEvent('mouseover', { bubbles: true, cancelable: true, view: window }));
	return true;
}`

// renderedScript checks computed styles of the element and its ancestors.
// Visibility is inherited by computed style, so only the element's own value
// is read.
const renderedScript = `(path) => {
	` + locateFn + `
	const el = locate(path);
	if (!el) return null;
	const own = window.getComputedStyle(el);
	if (own.visibility === 'hidden' || own.visibility === 'collapse') return false;
	for (let current = el; current; current = current.parentElement) {
		const style = window.getComputedStyle(current);
		if (style.display === 'none' || parseFloat(style.opacity) === 0) return false;
	}
	return true;
}`

const scrollIntoViewScript = `(path) => {
	` + locateFn + `
	const el = locate(path);
	if (!el) return false;
	el.scrollIntoView({ behavior: 'smooth', block: 'center' });
	return true;
}`

const boundingRectScript = `(path) => {
	` + locateFn + `
	const el = locate(path);
	if (!el) return null;
	const r = el.getBoundingClientRect();
	return {
		top: window.scrollY + r.top,
		left: window.scrollX + r.left,
		width: r.width,
		height: r.height,
	};
}`

const showOverlayScript = `(rect) => {
	const existing = document.getElementById('` + overlayID + `');
	if (existing) existing.remove();

	const overlay = document.createElement('div');
	overlay.id = '` + overlayID + `';
	overlay.style.cssText = [
		'position: absolute',
		'border: 2px solid red',
		'background: transparent',
		'pointer-events: none',
		'z-index: 2147483645',
		'box-sizing: border-box',
	].join(';');
	overlay.style.top = rect.top + 'px';
	overlay.style.left = rect.left + 'px';
	overlay.style.width = rect.width + 'px';
	overlay.style.height = rect.height + 'px';
	document.body.appendChild(overlay);
	return true;
}`

const moveOverlayScript = `(rect) => {
	const overlay = document.getElementById('` + overlayID + `');
	if (!overlay) return false;
	overlay.style.top = rect.top + 'px';
	overlay.style.left = rect.left + 'px';
	overlay.style.width = rect.width + 'px';
	overlay.style.height = rect.height + 'px';
	return true;
}`

const removeOverlayScript = `() => {
	const overlay = document.getElementById('` + overlayID + `');
	if (overlay) overlay.remove();
	return true;
}`

// elementAtScript returns the index path of the element under a viewport
// point, ignoring the highlight overlay.
const elementAtScript = `([x, y]) => {
	let el = document.elementFromPoint(x, y);
	if (el && el.id === '` + overlayID + `') {
		el.style.display = 'none';
		const below = document.elementFromPoint(x, y);
		el.style.display = '';
		el = below;
	}
	if (!el) return null;

	const path = [];
	while (el && el !== document.documentElement) {
		const parent = el.parentElement;
		if (!parent) return null;
		path.unshift(Array.prototype.indexOf.call(parent.children, el));
		el = parent;
	}
	return path;
}`
