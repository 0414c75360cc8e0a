package fleet

import (
	"fmt"
	"sort"

	"gopkg.in/ini.v1"
)

// ReadTargets parses an INI targets file. Sections are host groups and each
// key inside a section is a hostname:
//
//	[dashboard]
//	analysis01.example.com
//	analysis02.example.com
//
// Bare lines are accepted; values are ignored.
func ReadTargets(path string) (map[string][]string, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowBooleanKeys: true}, path)
	if err != nil {
		return nil, fmt.Errorf("targets load failed (%s): %w", path, err)
	}

	targets := make(map[string][]string)
	for _, section := range cfg.Sections() {
		name := section.Name()
		if name == ini.DefaultSection && len(section.Keys()) == 0 {
			continue
		}
		for _, key := range section.Keys() {
			targets[name] = append(targets[name], key.Name())
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("targets file %s names no hosts", path)
	}
	return targets, nil
}

// Flatten collects every host across all groups, walking groups in name
// order so the result is stable, and deduplicating hostnames.
func Flatten(targets map[string][]string) []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[string]struct{})
	var hosts []string
	for _, name := range names {
		for _, host := range targets[name] {
			if _, ok := seen[host]; ok {
				continue
			}
			seen[host] = struct{}{}
			hosts = append(hosts, host)
		}
	}
	return hosts
}
