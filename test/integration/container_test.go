package integration

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "testuser"
	pgPassword = "testpass"
	pgDatabase = "nurselinktest"
	pgBootWait = 30 * time.Second
)

// startPostgresContainer runs a throwaway postgres container via the docker
// CLI. The returned cleanup removes the container and its volume.
func startPostgresContainer(ctx context.Context) (string, func(), error) {
	port, err := freePort()
	if err != nil {
		return "", nil, fmt.Errorf("picking a port: %w", err)
	}

	name := fmt.Sprintf("nurselink-it-%d", port)
	// A crashed previous run can leave the name taken.
	_ = exec.CommandContext(ctx, "docker", "rm", "-f", name).Run()

	out, err := exec.CommandContext(ctx, "docker",
		"run", "-d", "--rm",
		"--name", name,
		"-p", fmt.Sprintf("%d:5432", port),
		"-e", "POSTGRES_USER="+pgUser,
		"-e", "POSTGRES_PASSWORD="+pgPassword,
		"-e", "POSTGRES_DB="+pgDatabase,
		pgImage,
	).CombinedOutput()
	if err != nil {
		return "", nil, fmt.Errorf("docker run: %w\n%s", err, out)
	}
	id := strings.TrimSpace(string(out))
	stop := func() { _ = exec.Command("docker", "rm", "-f", id).Run() }

	connStr := fmt.Sprintf("postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		pgUser, pgPassword, port, pgDatabase)
	if err := waitForPostgres(ctx, connStr); err != nil {
		stop()
		return "", nil, err
	}
	return connStr, stop, nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitForPostgres polls until the server answers a round-trip query or the
// boot window closes. The container starts before the server accepts
// connections, so polling is the only reliable readiness signal.
func waitForPostgres(ctx context.Context, connStr string) error {
	deadline := time.NewTimer(pgBootWait)
	defer deadline.Stop()
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()

	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("postgres not ready after %v: %v", pgBootWait, lastErr)
		case <-tick.C:
			attempt, cancel := context.WithTimeout(ctx, 2*time.Second)
			conn, err := pgx.Connect(attempt, connStr)
			if err == nil {
				var one int
				err = conn.QueryRow(attempt, "SELECT 1").Scan(&one)
				_ = conn.Close(attempt)
			}
			cancel()
			if err == nil {
				return nil
			}
			lastErr = err
		}
	}
}
