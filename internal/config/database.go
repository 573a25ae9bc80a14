package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	DefaultMaxRetryCount  = 3
	DefaultCommandTimeout = 30
	DefaultPoolSize       = 10

	// each retry gets at least this many seconds of the command timeout
	secondsPerRetry = 10
)

type (
	// DatabaseOptions is the Database configuration section.
	DatabaseOptions struct {
		ConnectionString           string `mapstructure:"CONNECTIONSTRING"`
		MaxRetryCount              int    `mapstructure:"MAXRETRYCOUNT" validate:"min=1,max=10"`
		CommandTimeout             int    `mapstructure:"COMMANDTIMEOUT" validate:"min=1,max=300"`
		EnableDetailedErrors       bool   `mapstructure:"ENABLEDETAILEDERRORS"`
		EnableSensitiveDataLogging bool   `mapstructure:"ENABLESENSITIVEDATALOGGING"`
		PoolSize                   int    `mapstructure:"POOLSIZE" validate:"min=1,max=100"`
		AutoMigrateOnStartup       bool   `mapstructure:"AUTOMIGRATEONSTARTUP"`
	}

	// ValidationError carries every violation found in a DatabaseOptions value.
	ValidationError struct {
		err error
	}
)

var rangeMessages = map[string]string{
	"MaxRetryCount":  "MaxRetryCount must be between 1 and 10.",
	"CommandTimeout": "CommandTimeout must be between 1 and 300 seconds.",
	"PoolSize":       "PoolSize must be between 1 and 100.",
}

var optionsValidator = validator.New()

func DefaultDatabaseOptions() DatabaseOptions {
	return DatabaseOptions{
		MaxRetryCount:        DefaultMaxRetryCount,
		CommandTimeout:       DefaultCommandTimeout,
		PoolSize:             DefaultPoolSize,
		AutoMigrateOnStartup: true,
	}
}

func (o DatabaseOptions) CommandTimeoutDuration() time.Duration {
	return time.Duration(o.CommandTimeout) * time.Second
}

// Validate returns a *ValidationError listing every violation, or nil.
func (o DatabaseOptions) Validate() error {
	violations := ValidateDatabaseOptions(o)
	if len(violations) == 0 {
		return nil
	}
	var err error
	for _, v := range violations {
		err = multierr.Append(err, errors.New(v))
	}
	return &ValidationError{err: err}
}

// ValidateDatabaseOptions evaluates every rule independently; an empty result
// means the options are usable.
func ValidateDatabaseOptions(o DatabaseOptions) []string {
	var failures []string

	failures = append(failures, checkConnectionString(o.ConnectionString)...)

	if o.EnableSensitiveDataLogging && !o.EnableDetailedErrors {
		failures = append(failures, "EnableSensitiveDataLogging requires EnableDetailedErrors to be true.")
	}

	if o.CommandTimeout < o.MaxRetryCount*secondsPerRetry {
		failures = append(failures, fmt.Sprintf(
			"CommandTimeout (%d) should be at least 10 times the MaxRetryCount (%d) to allow for proper retry handling.",
			o.CommandTimeout, o.MaxRetryCount))
	}

	if err := optionsValidator.Struct(o); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return append(failures, err.Error())
		}
		for _, fe := range fieldErrs {
			msg, ok := rangeMessages[fe.Field()]
			if !ok {
				msg = fmt.Sprintf("%s failed the '%s' rule.", fe.Field(), fe.Tag())
			}
			failures = append(failures, msg)
		}
	}

	return failures
}

func checkConnectionString(cs string) []string {
	if strings.TrimSpace(cs) == "" {
		return []string{"Database connection string is required."}
	}

	if _, err := pgx.ParseConfig(cs); err != nil {
		return []string{fmt.Sprintf("Invalid connection string format: %s", err)}
	}
	params, err := connParams(cs)
	if err != nil {
		return []string{fmt.Sprintf("Invalid connection string format: %s", err)}
	}

	var failures []string
	if strings.TrimSpace(params["host"]) == "" {
		failures = append(failures, "Connection string must specify a valid Host/Server.")
	}
	if strings.TrimSpace(params["dbname"]) == "" && strings.TrimSpace(params["database"]) == "" {
		failures = append(failures, "Connection string must specify a valid Database name.")
	}
	if truthy(params["include_error_detail"]) || truthy(params["log_parameters"]) ||
		params["log_statement"] == "all" || params["log_statement"] == "mod" {
		failures = append(failures, "Connection string should not enable error details or parameter logging in production.")
	}
	return failures
}

// connParams returns the settings written explicitly in the connection
// string. pgx fills missing ones from the environment, which would hide a
// missing host or database.
func connParams(cs string) (map[string]string, error) {
	params := map[string]string{}

	if strings.HasPrefix(cs, "postgres://") || strings.HasPrefix(cs, "postgresql://") {
		u, err := url.Parse(cs)
		if err != nil {
			return nil, err
		}
		if h := u.Hostname(); h != "" {
			params["host"] = h
		}
		if db := strings.TrimPrefix(u.Path, "/"); db != "" {
			params["dbname"] = db
		}
		for k, vs := range u.Query() {
			if len(vs) > 0 {
				setParam(params, strings.ToLower(k), vs[0])
			}
		}
		return params, nil
	}

	const blanks = " \t\n\r\v\f"
	s := cs
	for {
		s = strings.TrimLeft(s, blanks)
		if s == "" {
			return params, nil
		}
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			return nil, errors.Errorf("missing '=' after %q", s)
		}
		key := strings.ToLower(strings.TrimSpace(s[:eq]))
		s = strings.TrimLeft(s[eq+1:], blanks)

		var val strings.Builder
		if strings.HasPrefix(s, "'") {
			s = s[1:]
			closed := false
			for i := 0; i < len(s); i++ {
				if s[i] == '\\' && i+1 < len(s) {
					i++
					val.WriteByte(s[i])
					continue
				}
				if s[i] == '\'' {
					s = s[i+1:]
					closed = true
					break
				}
				val.WriteByte(s[i])
			}
			if !closed {
				return nil, errors.Errorf("unterminated quoted value for %q", key)
			}
		} else {
			end := strings.IndexAny(s, blanks)
			if end < 0 {
				end = len(s)
			}
			val.WriteString(s[:end])
			s = s[end:]
		}

		setParam(params, key, val.String())
	}
}

// setParam keeps host and database names as written; flag values are
// compared case-insensitively.
func setParam(params map[string]string, key, val string) {
	switch key {
	case "host", "dbname", "database":
		params[key] = val
	default:
		params[key] = strings.ToLower(val)
	}
}

func truthy(v string) bool {
	switch v {
	case "true", "on", "yes", "1":
		return true
	}
	return false
}

func (e *ValidationError) Error() string {
	return "invalid database options: " + strings.Join(e.Violations(), " ")
}

func (e *ValidationError) Violations() []string {
	errs := multierr.Errors(e.err)
	out := make([]string, len(errs))
	for i := range errs {
		out[i] = errs[i].Error()
	}
	return out
}

func (e *ValidationError) Unwrap() error {
	return e.err
}
