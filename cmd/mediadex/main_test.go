package main

import "testing"

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"index", "verify", "vet", "dedupe", "stats", "history"}

	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %s is not registered", name)
		}
	}
}

func TestGlobalFlagsDeclared(t *testing.T) {
	for _, flag := range []string{"db", "verbose", "quiet", "config"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s is missing", flag)
		}
	}
}
