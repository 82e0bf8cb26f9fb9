package config

import (
	"fmt"
	"net/url"
	"strings"
)

// cloudSQLSocketDir is where Cloud Run mounts Cloud SQL instances.
const cloudSQLSocketDir = "/cloudsql"

// Enabled reports whether a persistent version cache store is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.InstanceConnectionName != ""
}

// DSN returns the PostgreSQL connection string. DATABASE_URL wins; otherwise
// a Unix socket DSN is built for the Cloud SQL instance. An empty password
// produces a DSN suitable for IAM authentication.
func (c DatabaseConfig) DSN() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.InstanceConnectionName == "" {
		return "", fmt.Errorf("neither DATABASE_URL nor INSTANCE_CONNECTION_NAME is set")
	}
	if c.User == "" || c.Name == "" {
		return "", fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
	}

	parts := []string{
		"host=" + cloudSQLSocketDir + "/" + c.InstanceConnectionName,
		"user=" + c.User,
	}
	if c.Password != "" {
		parts = append(parts, "password="+c.Password)
	}
	parts = append(parts, "dbname="+c.Name, "sslmode=disable")
	return strings.Join(parts, " "), nil
}

// Redacted describes the connection target without credentials, for logs.
func (c DatabaseConfig) Redacted() string {
	switch {
	case c.URL != "":
		return redactURL(c.URL)
	case c.InstanceConnectionName != "":
		return fmt.Sprintf("cloudsql instance=%s user=%s dbname=%s", c.InstanceConnectionName, c.User, c.Name)
	default:
		return "none"
	}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
