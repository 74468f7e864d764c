package tiup

import (
	"strconv"

	"github.com/guseggert/playground/cluster"
)

// bindAll is the listen address for the roles that clients connect to.
const bindAll = "0.0.0.0"

// PlaygroundArgs builds the arguments for "tiup playground".
func PlaygroundArgs(cfg cluster.Config) []string {
	args := []string{"playground"}
	if cfg.Version != "" {
		args = append(args, cfg.Version)
	}

	args = append(args, "--tag", string(cfg.Tag))

	if cfg.WithoutMonitor {
		args = append(args, "--without-monitor")
	}

	roles := []struct {
		flag  string
		count int
	}{
		{"--db", cfg.Replicas.DB},
		{"--pd", cfg.Replicas.PD},
		{"--tiflash", cfg.Replicas.TiFlash},
		{"--kv", cfg.Replicas.KV},
	}
	for _, role := range roles {
		count := cfg.Replicas.DB
		if cfg.IndependentReplicas {
			count = role.count
		}
		if count <= 0 {
			count = 1
		}
		args = append(args, role.flag, strconv.Itoa(count))
	}

	return append(args,
		"--db.host", bindAll,
		"--pd.host", bindAll,
	)
}
