package bridge

// prelude assembles the public guest API over the raw __host functions.
// It runs once per fresh runtime, before the user script. The test
// chain lives here: one promise chain starting pre-resolved, appended to
// synchronously at registration time so the script's top-level body
// returns quickly and no callable is stored for a later unrelated tick.
const prelude = `(function() {
	'use strict';

	function str(v) {
		if (v === undefined) return 'undefined';
		if (v === null) return 'null';
		if (typeof v === 'object') {
			try { return JSON.stringify(v); } catch (e) { return String(v); }
		}
		return String(v);
	}

	function errMessage(e) {
		if (e instanceof Error) return e.message || String(e);
		return str(e);
	}

	globalThis.log = function() {
		var parts = [];
		for (var i = 0; i < arguments.length; i++) parts.push(str(arguments[i]));
		__host.log(parts.join(' '));
	};

	globalThis.env = {
		get: function(scope, key) {
			if (key === undefined) { key = scope; scope = ''; }
			return __host.envGet(String(scope), String(key));
		},
		set: function(scope, key, value) {
			if (value === undefined) { value = key; key = scope; scope = ''; }
			__host.envSet(String(scope), String(key), str(value));
		},
		unset: function(scope, key) {
			if (key === undefined) { key = scope; scope = ''; }
			__host.envUnset(String(scope), String(key));
		}
	};

	globalThis.cookies = {
		get: function(name) { return __host.cookieGet(String(name)); },
		set: function(name, value) { __host.cookieSet(String(name), str(value)); }
	};

	globalThis.assert = function(actual, matcher, expected) {
		return __host.assert(actual, String(matcher), expected);
	};

	globalThis.__makeResponse = function(d) {
		function headerGet(name) {
			name = String(name).toLowerCase();
			for (var i = 0; i < d.headers.length; i++) {
				if (d.headers[i].name.toLowerCase() === name) return d.headers[i].value;
			}
			return null;
		}
		var headers = [];
		for (var i = 0; i < d.headers.length; i++) {
			headers.push({ name: d.headers[i].name, value: d.headers[i].value });
		}
		return {
			status: d.status,
			statusText: d.statusText,
			ok: d.status >= 200 && d.status < 300,
			headers: { get: headerGet, all: headers },
			text: function() { return Promise.resolve(d.bodyText); },
			json: function() {
				return Promise.resolve().then(function() { return JSON.parse(d.bodyText); });
			},
			arrayBuffer: function() { return Promise.resolve(d.body); }
		};
	};

	globalThis.__makeRequest = function(d) {
		var headers = [];
		for (var i = 0; i < d.headers.length; i++) {
			headers.push({ name: d.headers[i].name, value: d.headers[i].value });
		}
		return { method: d.method, url: d.url, headers: headers, body: d.body };
	};

	globalThis.fetch = function(url, options) {
		var opts = options === undefined ? null : options;
		return __host.fetch(String(url), opts).then(function(d) {
			return __makeResponse(d);
		});
	};

	// Sequential test scheduler: one chain, appended to at registration
	// time. Test N+1 starts only after test N fully settled; a throwing
	// body records one failing outcome and the chain continues.
	var chain = Promise.resolve();
	globalThis.test = function(name, body) {
		if (typeof body !== 'function') {
			throw new TypeError('test(name, body) requires a function body');
		}
		var id = __host.registerTest(String(name));
		chain = chain.then(function() {
			__host.enterTest(id);
			return Promise.resolve().then(function() {
				return body();
			}).then(function() {
				__host.leaveTest(id, null);
			}, function(e) {
				__host.leaveTest(id, errMessage(e));
			});
		});
		__host.trackChain(chain);
	};

	// Legacy-only APIs surface as descriptive errors, never crashes
	globalThis.XMLHttpRequest = function() {
		__host.unsupported('XMLHttpRequest', 'use fetch instead');
	};
	globalThis.setTimeout = function() {
		__host.unsupported('setTimeout', 'scheduling is cooperative; await promises instead');
	};
	globalThis.setInterval = function() {
		__host.unsupported('setInterval', 'scheduling is cooperative; await promises instead');
	};
})();`
