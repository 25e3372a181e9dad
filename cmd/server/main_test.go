package main

import "testing"

// First boot must never be skipped: no SEED_ADMIN_PIN means the dev
// default, not a user table with nobody able to log in.
func TestSeedAdminPINFallback(t *testing.T) {
	pin, usedDefault := seedAdminPIN("")
	if pin != defaultSeedAdminPIN || !usedDefault {
		t.Fatalf("seedAdminPIN(\"\") = %q, %v; want dev default with warning", pin, usedDefault)
	}

	pin, usedDefault = seedAdminPIN("123456")
	if pin != "123456" || usedDefault {
		t.Fatalf("seedAdminPIN(configured) = %q, %v; want the configured PIN", pin, usedDefault)
	}
}
