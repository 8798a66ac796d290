package resolve

import "strings"

var coreModules = map[string]bool{}

func init() {
	for _, name := range strings.Fields(`
		assert assert/strict async_hooks buffer child_process cluster console
		constants crypto dgram diagnostics_channel dns dns/promises domain
		events fs fs/promises http http2 https inspector module net os path
		path/posix path/win32 perf_hooks process punycode querystring readline
		readline/promises repl stream stream/consumers stream/promises
		stream/web string_decoder sys timers timers/promises tls trace_events
		tty url util util/types v8 vm wasi worker_threads zlib`) {
		coreModules[name] = true
	}
}

// IsCoreModule reports whether specifier names a Node built-in module,
// with or without the node: scheme.
func IsCoreModule(specifier string) bool {
	if rest, ok := strings.CutPrefix(specifier, "node:"); ok {
		return rest != ""
	}
	return coreModules[specifier]
}
