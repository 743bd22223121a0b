package bootstrap

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func Test_ParseRole(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    Role
		wantErr bool
	}{
		{name: "empty defaults to http", token: "", want: RoleHTTP},
		{name: "http", token: "http", want: RoleHTTP},
		{name: "whitespace and case cleaned", token: "  HTTP \n", want: RoleHTTP},
		{name: "realtime", token: "realtime", want: RoleRealtime},
		{name: "worker", token: "worker", want: RoleWorker},
		{name: "scheduler", token: "scheduler", want: RoleScheduler},
		{name: "unknown", token: "websocket", wantErr: true},
		{name: "unknown legacy", token: "beat", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRole(tt.token)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRole(%q) expected error", tt.token)
				}
				for _, role := range validRoles {
					if !strings.Contains(err.Error(), string(role)) {
						t.Errorf("error %q does not list valid role %s", err, role)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRole(%q) unexpected error: %v", tt.token, err)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %s, want %s", tt.token, got, tt.want)
			}
		})
	}
}

func Test_Dispatcher_argv(t *testing.T) {
	conf := testConfig()
	conf.Server.ConfigFile = "/etc/mikan/server.yaml"
	d := NewDispatcher(conf, &testLogger{})

	tests := []struct {
		role     Role
		wantCmd  string
		wantArgs []string
	}{
		{
			role:    RoleHTTP,
			wantCmd: "mikan-api",
			wantArgs: []string{
				"serve", "-bind", "0.0.0.0:8000", "-config", "/etc/mikan/server.yaml",
			},
		},
		{
			role:    RoleRealtime,
			wantCmd: "mikan-realtime",
			wantArgs: []string{
				"-bind", "0.0.0.0:8001",
				"-max-body-size", "104857600",
				"-idle-timeout", "5m0s",
				"-compression",
			},
		},
		{
			role:    RoleWorker,
			wantCmd: "mikan-worker",
			wantArgs: []string{
				"-concurrency", "8",
				"-max-tasks-per-child", "1000",
				"-max-memory-per-child", "200000",
				"-without-gossip",
				"-without-mingle",
				"-without-heartbeat",
			},
		},
		{
			role:     RoleScheduler,
			wantCmd:  "mikan-scheduler",
			wantArgs: []string{"-schedule", "/var/run/mikan/schedule.db"},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			cmd, args, err := d.argv(tt.role)
			if err != nil {
				t.Fatalf("argv(%s) unexpected error: %v", tt.role, err)
			}
			if cmd != tt.wantCmd {
				t.Errorf("command = %s, want %s", cmd, tt.wantCmd)
			}
			if strings.Join(args, " ") != strings.Join(tt.wantArgs, " ") {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func Test_Dispatcher_argv_compressionOff(t *testing.T) {
	conf := testConfig()
	conf.Realtime.Compression = false
	d := NewDispatcher(conf, &testLogger{})

	_, args, err := d.argv(RoleRealtime)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range args {
		if a == "-compression" {
			t.Error("compression flag set with compression disabled")
		}
	}
}

func Test_Dispatcher_Exec(t *testing.T) {
	oldLookPath, oldExec := lookPathFunc, execFunc
	defer func() { lookPathFunc, execFunc = oldLookPath, oldExec }()

	var execPath string
	var execArgv []string
	lookPathFunc = func(name string) (string, error) { return "/usr/local/bin/" + name, nil }
	execFunc = func(path string, argv []string, env []string) error {
		execPath, execArgv = path, argv
		return nil
	}

	d := NewDispatcher(testConfig(), &testLogger{})
	if err := d.Exec(RoleWorker); err != nil {
		t.Fatalf("Exec() unexpected error: %v", err)
	}
	if execPath != "/usr/local/bin/mikan-worker" {
		t.Errorf("exec path = %s, want /usr/local/bin/mikan-worker", execPath)
	}
	if len(execArgv) == 0 || execArgv[0] != "mikan-worker" {
		t.Errorf("argv[0] = %v, want mikan-worker", execArgv)
	}
}

func Test_Dispatcher_Exec_commandNotFound(t *testing.T) {
	oldLookPath, oldExec := lookPathFunc, execFunc
	defer func() { lookPathFunc, execFunc = oldLookPath, oldExec }()

	lookPathFunc = func(name string) (string, error) { return "", errors.New("executable file not found in $PATH") }
	execCalled := false
	execFunc = func(path string, argv []string, env []string) error {
		execCalled = true
		return nil
	}

	d := NewDispatcher(testConfig(), &testLogger{})
	if err := d.Exec(RoleHTTP); err == nil {
		t.Fatal("Exec() expected error for missing binary")
	}
	if execCalled {
		t.Error("exec attempted with unresolved path")
	}
}
