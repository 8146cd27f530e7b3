package metadata

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

var environmentTests = []struct {
	environmentVar string
	want           AppEnvironment
}{
	{"localdev", "localdev"},
	{"LocalDev", "localdev"},
	{"", "localdev"},

	{"DEV", "dev"},
	{"dev", "dev"},
	{"Development", "dev"},

	{"staging", "staging"},
	{"STAGING", "staging"},

	{"prod", "prod"},
	{"Production", "prod"},

	{"unknown", "localdev"},
	{"Random", "localdev"},
}

func TestParseAppEnvironment(t *testing.T) {
	for _, tt := range environmentTests {
		testname := fmt.Sprintf("%s,%s", tt.environmentVar, tt.want)
		t.Run(testname, func(t *testing.T) {
			got := parseAppEnvironment(tt.environmentVar)

			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// TestMemoizeAppEnvironment calls the memoized function from many goroutines
// at once, as the logger and request handlers do at startup.
func TestMemoizeAppEnvironment(t *testing.T) {
	var calls int32
	get := memoizeAppEnvironment(func() AppEnvironment {
		atomic.AddInt32(&calls, 1)
		return EnvStaging
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := get(); got != EnvStaging {
				t.Errorf("got %s, want %s", got, EnvStaging)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected a single evaluation, got %d", got)
	}
}

func TestIsLocalEnv(t *testing.T) {
	getAppEnv := GetAppEnvironment
	t.Cleanup(func() {
		GetAppEnvironment = getAppEnv
	})

	for _, tt := range environmentTests {
		want := tt.want == EnvLocalDev

		testname := fmt.Sprintf("%s,%v", tt.environmentVar, want)
		t.Run(testname, func(t *testing.T) {
			env := parseAppEnvironment(tt.environmentVar)
			GetAppEnvironment = func() AppEnvironment {
				return env
			}

			if got := IsLocalEnv(); got != want {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestIsRunningInCI(t *testing.T) {
	var tests = []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"TRUE", true},
		{"yep", true},
		{"0", false},
		{"nope", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("CI", tt.value)

			if got := IsRunningInCI(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
