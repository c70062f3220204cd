// Package flagx helps the identity server share os.Args between independent
// flag consumers: the JSON-config bootstrap and the main option set each parse
// only the flags they recognize, without tripping over the other's.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args belonging to the recognized flags, in
// their original order. Both spellings are supported:
//
//  1. flag and value as separate arguments:  -d postgres://…
//  2. flag and value joined with '=':        --database=postgres://…
//
// recognized lists the accepted flag names including their dashes (e.g.
// []string{"-d", "-as"}). A recognized flag followed by a dash-prefixed token
// is kept without a value; everything unrecognized is dropped, so a FlagSet
// parsing the result never sees a flag it did not define.
func FilterArgs(args []string, recognized []string) []string {
	accepted := make(map[string]struct{}, len(recognized))
	for _, f := range recognized {
		accepted[f] = struct{}{}
	}

	// Empty rather than nil so the result is always parseable.
	kept := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--flag=value" / "-f=value": match on the part before '='.
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := accepted[name]; ok {
				kept = append(kept, arg)
			}
			continue
		}

		if _, ok := accepted[arg]; ok {
			kept = append(kept, arg)
			// Take the following token as this flag's value unless it starts
			// another flag.
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				kept = append(kept, args[i+1])
				i++
			}
		}
	}

	return kept
}

// JsonConfigFlags extracts the JSON config file path from -c or -config on the
// command line. Other flags are left for the main option set; when neither
// spelling is present the result is empty and no file is loaded.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}
