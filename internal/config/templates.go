package config

import (
	"fmt"
	"os"
)

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o600)
}

// Template documents every key with its default value.
const Template = `# boincctl configuration
address = "127.0.0.1:31416"

# password = ""
# first line of the daemon's gui_rpc_auth.cfg; used when password is unset
# password_file = "/var/lib/boinc-client/gui_rpc_auth.cfg"

max_retries = 2
connect_timeout = "5s"
handshake_timeout = "10s"
read_timeout = "30s"
write_timeout = "10s"

[backoff]
initial_delay = "100ms"
multiplier = 2.0
max_delay = "2s"
jitter = true

[exporter]
listen = "127.0.0.1:9535"
poll_interval = "15s"
# bounds one poll; defaults to poll_interval
# poll_timeout = "15s"
cors_origins = []
`
