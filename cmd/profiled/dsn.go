package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// resolveDSN determines the storage DSN. Mirrors cmd/profile so both
// binaries behave identically in containerized environments.
//
// Precedence order (highest wins):
//  1. -dsn flag
//  2. DSN environment variable (full DSN string)
//  3. Component env vars DSN_HOST / DSN_PORT / DSN_USER / DSN_PASSWORD /
//     DSN_DB plus backend-specific knobs, with safe local defaults.
func resolveDSN(kind, flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	if v := strings.TrimSpace(os.Getenv("DSN")); v != "" {
		return v, nil
	}

	host := strings.TrimSpace(os.Getenv("DSN_HOST"))
	port := strings.TrimSpace(os.Getenv("DSN_PORT"))
	user := strings.TrimSpace(os.Getenv("DSN_USER"))
	pass := os.Getenv("DSN_PASSWORD") // allow spaces
	db := strings.TrimSpace(os.Getenv("DSN_DB"))
	params := strings.TrimSpace(os.Getenv("DSN_PARAMS"))

	switch kind {
	case "postgres":
		return buildPostgresDSN(host, port, user, pass, db, strings.TrimSpace(os.Getenv("DSN_SSLMODE")), params), nil
	case "mssql":
		return buildMSSQLDSN(host, port, user, pass, db, strings.TrimSpace(os.Getenv("DSN_ENCRYPT")), params), nil
	case "sqlite":
		return buildSQLiteDSN(strings.TrimSpace(os.Getenv("DSN_SQLITE")), params), nil
	default:
		return "", fmt.Errorf("unsupported store kind: %q", kind)
	}
}

func buildPostgresDSN(host, port, user, pass, db, sslmode, extraParams string) string {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "5432"
	}
	if user == "" {
		user = "profiler"
	}
	if pass == "" {
		pass = "profiler"
	}
	if db == "" {
		db = "profiler"
	}
	if sslmode == "" {
		sslmode = "disable"
	}

	u := &url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(user, pass),
		Host:   host + ":" + port,
		Path:   "/" + db,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	appendRawParams(q, extraParams)
	u.RawQuery = q.Encode()
	return u.String()
}

func buildMSSQLDSN(host, port, user, pass, db, encrypt, extraParams string) string {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "1433"
	}
	if user == "" {
		user = "profiler"
	}
	if pass == "" {
		pass = "profiler"
	}
	if db == "" {
		db = "profiler"
	}
	if encrypt == "" {
		encrypt = "disable"
	}

	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(user, pass),
		Host:   host + ":" + port,
	}
	q := u.Query()
	q.Set("database", db)
	q.Set("encrypt", encrypt)
	appendRawParams(q, extraParams)
	u.RawQuery = q.Encode()
	return u.String()
}

func buildSQLiteDSN(override, extraParams string) string {
	base := override
	if base == "" {
		base = "profiles.db"
	}
	if strings.Contains(base, ":") {
		if extraParams == "" {
			return base
		}
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		return base + sep + extraParams
	}
	dsn := "file:" + base
	if extraParams != "" {
		dsn += "?" + extraParams
	}
	return dsn
}

func appendRawParams(q url.Values, raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	parsed, err := url.ParseQuery(raw)
	if err != nil {
		return
	}
	for k, vals := range parsed {
		if strings.TrimSpace(k) == "" {
			continue
		}
		for _, v := range vals {
			q.Add(k, v)
		}
	}
}
