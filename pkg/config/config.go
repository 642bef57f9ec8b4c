package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"Netshape/api"
	"Netshape/pkg/topo"
)

// DefaultUser is prepended to roster entries that carry only a domain.
const DefaultUser = "root"

// Roster is one parsed hosts group.
type Roster struct {
	BasePath string
	RepoName string
	Hosts    []api.Host // sorted by host number
}

type rosterFile struct {
	BasePath string                       `toml:"base_path"`
	RepoName string                       `toml:"repo_name"`
	Hosts    map[string]map[string]string `toml:"hosts"`
	Addrs    map[string]map[string]string `toml:"addrs"`
}

// LoadRoster reads the TOML hosts file and returns the named group.
// Host names follow the hostN convention and sort numerically. Every
// host must appear in both the hosts and the addrs table of the group,
// and entries whose remote is "local" map to this machine.
func LoadRoster(path, group, defaultUser string) (*Roster, error) {
	if defaultUser == "" {
		defaultUser = DefaultUser
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hosts file: %w", err)
	}
	var file rosterFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse hosts file: %w", err)
	}

	remotes, ok := file.Hosts[group]
	if !ok {
		return nil, api.Configf("hosts group %q not found in %s", group, path)
	}
	addrs := file.Addrs[group]
	if len(addrs) != len(remotes) {
		return nil, api.Configf("group %q: %d hosts but %d addresses",
			group, len(remotes), len(addrs))
	}

	names := make([]string, 0, len(remotes))
	for name := range remotes {
		if _, err := hostNumber(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ni, _ := hostNumber(names[i])
		nj, _ := hostNumber(names[j])
		return ni < nj
	})

	r := &Roster{BasePath: file.BasePath, RepoName: file.RepoName}
	for _, name := range names {
		addr, ok := addrs[name]
		if !ok {
			return nil, api.Configf("group %q: host %s has no address", group, name)
		}
		remote := strings.TrimSpace(remotes[name])
		h := api.Host{Name: name, Addr: addr}
		switch {
		case remote == "local":
			// this machine
		case strings.HasPrefix(remote, "container:"):
			h.Container = strings.TrimPrefix(remote, "container:")
		default:
			if !strings.Contains(remote, "@") {
				remote = defaultUser + "@" + remote
			}
			if _, _, err := splitRemote(remote); err != nil {
				return nil, err
			}
			h.Remote = remote
		}
		r.Hosts = append(r.Hosts, h)
	}
	return r, nil
}

func hostNumber(name string) (int, error) {
	if !strings.HasPrefix(name, "host") {
		return 0, api.Configf("invalid host name %q, want hostN", name)
	}
	n, err := strconv.Atoi(name[len("host"):])
	if err != nil {
		return 0, api.Configf("invalid host name %q, want hostN", name)
	}
	return n, nil
}

func splitRemote(remote string) (user, domain string, err error) {
	segs := strings.Split(remote, "@")
	if len(segs) != 2 || segs[0] == "" || segs[1] == "" {
		return "", "", api.Configf("invalid remote string %q", remote)
	}
	return segs[0], segs[1], nil
}

// TopoConfig is the parsed topology parameter file. Exactly one of
// Uniform and Pairs must be present.
type TopoConfig struct {
	Uniform *api.LinkParams `yaml:"uniform"`
	Pairs   *PairsConfig    `yaml:"pairs"`
}

// PairsConfig describes an asymmetric matrix through unordered pairs
// with an optional default. RTT, when true, halves mean and jitter to
// turn round-trip figures into per-direction delays.
type PairsConfig struct {
	Default *api.LinkParams `yaml:"default"`
	RTT     bool            `yaml:"rtt"`
	Links   []PairLink      `yaml:"links"`
}

// PairLink is one unordered host pair with its parameters.
type PairLink struct {
	A          string `yaml:"a"`
	B          string `yaml:"b"`
	api.LinkParams `yaml:",inline"`
}

// LoadTopo reads the YAML topology file.
func LoadTopo(path string) (*TopoConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology file: %w", err)
	}
	var cfg TopoConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse topology file: %w", err)
	}
	if (cfg.Uniform == nil) == (cfg.Pairs == nil) {
		return nil, api.Configf("topology file needs exactly one of uniform or pairs")
	}
	return &cfg, nil
}

// ParamsFunc turns the config into the pairwise parameter function.
func (c *TopoConfig) ParamsFunc() (topo.ParamsFunc, error) {
	if c.Uniform != nil {
		if err := c.Uniform.Validate(); err != nil {
			return nil, err
		}
		return topo.Uniform(*c.Uniform), nil
	}

	pm := topo.NewPairsMap(c.Pairs.Default)
	for _, l := range c.Pairs.Links {
		if err := pm.Set(l.A, l.B, l.LinkParams); err != nil {
			return nil, err
		}
	}
	if c.Pairs.RTT {
		pm = pm.Halved()
	}
	return pm.Func(), nil
}
