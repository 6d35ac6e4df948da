package booking

// JavaScript evaluated in the hotel page. The calendar reader mirrors the
// page structure: cells carry a data-date attribute and the nightly price
// sits in a nested span. Selectors are layered with fallbacks because the
// site rotates its markup.

const blockPageJS = `
	(function() {
		var title = (document.title || '').toLowerCase();
		var body = (document.body ? document.body.innerText : '').toLowerCase();
		var markers = ['captcha', 'access denied', 'are you a human', 'unusual traffic', 'robot check'];
		for (var i = 0; i < markers.length; i++) {
			if (title.indexOf(markers[i]) !== -1) return true;
		}
		if (body.length < 400) {
			for (var j = 0; j < markers.length; j++) {
				if (body.indexOf(markers[j]) !== -1) return true;
			}
		}
		return false;
	})()
`

const acceptCookiesJS = `
	(function() {
		var selectors = [
			'#onetrust-accept-btn-handler',
			'[data-testid="accept-cookies"]',
			'button[id*="accept"]'
		];
		for (var i = 0; i < selectors.length; i++) {
			var btn = document.querySelector(selectors[i]);
			if (btn) { btn.click(); return true; }
		}
		var buttons = document.querySelectorAll('button, a');
		for (var j = 0; j < buttons.length; j++) {
			var text = (buttons[j].innerText || '').trim().toLowerCase();
			if (text === 'accepter' || text === 'accept' || text === 'ok') {
				buttons[j].click();
				return true;
			}
		}
		return false;
	})()
`

const openDatePickerJS = `
	(function() {
		var el = document.querySelector('[data-testid="date-display-field-start"]');
		if (!el) {
			var buttons = document.querySelectorAll('button');
			for (var i = 0; i < buttons.length; i++) {
				var text = (buttons[i].innerText || '').toLowerCase();
				if (text.indexOf("date d'arriv") !== -1 || text.indexOf('check-in date') !== -1) {
					el = buttons[i];
					break;
				}
			}
		}
		if (!el) return false;
		var target = el.closest('button') || el;
		target.click();
		return true;
	})()
`

const readCalendarJS = `
	(function() {
		var out = [];
		var cells = document.querySelectorAll('main table tbody tr td');
		if (cells.length < 5) {
			cells = document.querySelectorAll('[data-date]');
		}
		if (cells.length < 5) {
			cells = document.querySelectorAll('table tbody tr td');
		}
		for (var i = 0; i < cells.length; i++) {
			var cell = cells[i];
			var dateStr = cell.getAttribute('data-date') ||
				(cell.querySelector('[data-date]') && cell.querySelector('[data-date]').getAttribute('data-date')) ||
				(cell.closest('[data-date]') && cell.closest('[data-date]').getAttribute('data-date')) || '';
			if (!dateStr) continue;

			var checkin = '';
			var isoMatch = dateStr.match(/^(\d{4})-(\d{2})-(\d{2})/);
			if (isoMatch) {
				checkin = isoMatch[0];
			} else {
				var digits = dateStr.replace(/\D/g, '');
				if (digits.length >= 8) {
					checkin = digits.slice(0,4) + '-' + digits.slice(4,6) + '-' + digits.slice(6,8);
				}
			}
			if (!checkin) continue;

			var priceSpan = cell.querySelector('span div span') || cell.querySelector('span span') || cell.querySelector('span');
			var priceText = ((priceSpan && priceSpan.textContent) || cell.textContent || '').trim();

			var disabled = cell.hasAttribute('disabled') || cell.getAttribute('aria-disabled') === 'true' ||
				(cell.className && /disabled|unavailable|blocked|grayed/i.test(cell.className));

			out.push({ checkin: checkin, priceText: priceText, available: !disabled });
		}
		return out;
	})()
`
