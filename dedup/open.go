package dedup

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Options carries settings that do not fit in a store address.
type Options struct {
	// Password overrides any password in a redis address.
	Password string
	// ProjectID is used for "firestore://" addresses without a project.
	ProjectID string
}

// Kind names the backend an address selects.
func Kind(addr string) string {
	addr = strings.TrimSpace(addr)
	switch {
	case addr == "":
		return "memory"
	case strings.HasPrefix(addr, "redis://"), strings.HasPrefix(addr, "rediss://"):
		return "redis"
	case strings.HasPrefix(addr, "firestore://"):
		return "firestore"
	case strings.HasPrefix(addr, "sqlite://"):
		return "sqlite"
	case !strings.Contains(addr, "://"):
		return "redis"
	default:
		return ""
	}
}

// Open returns the tracker selected by addr:
//
//	""                    in-memory, process lifetime
//	redis://host:port/db  redis set (a bare host[:port] works too)
//	firestore://project   firestore collection
//	sqlite://path         sqlite file
func Open(ctx context.Context, addr string, opts Options) (Tracker, error) {
	addr = strings.TrimSpace(addr)

	switch Kind(addr) {
	case "memory":
		return NewMemory(), nil

	case "redis":
		var ro *redis.Options
		if strings.Contains(addr, "://") {
			parsed, err := redis.ParseURL(addr)
			if err != nil {
				return nil, fmt.Errorf("parse redis address: %w", err)
			}
			ro = parsed
		} else {
			ro = &redis.Options{Addr: withDefaultPort(addr, "6379")}
		}
		if opts.Password != "" {
			ro.Password = opts.Password
		}
		client := redis.NewClient(ro)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", ro.Addr, err)
		}
		return NewRedis(client), nil

	case "firestore":
		project := strings.Trim(strings.TrimPrefix(addr, "firestore://"), "/")
		if project == "" {
			project = opts.ProjectID
		}
		if project == "" {
			return nil, fmt.Errorf("firestore address %q has no project and no project id is configured", addr)
		}
		return NewFirestore(ctx, project)

	case "sqlite":
		path := strings.TrimPrefix(addr, "sqlite://")
		if path == "" {
			return nil, fmt.Errorf("sqlite address %q has no path", addr)
		}
		return OpenSQLite(ctx, path)
	}

	return nil, fmt.Errorf("unsupported dedup store address %q", addr)
}

func withDefaultPort(hostport, port string) string {
	if _, _, err := net.SplitHostPort(hostport); err == nil {
		return hostport
	}
	return net.JoinHostPort(hostport, port)
}
