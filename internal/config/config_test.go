package config

import (
	"strings"
	"testing"

	"github.com/0gfoundation/exchange-booth/internal/address"
)

const testProgramID = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PROGRAM_ID", testProgramID)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Ledger.Backend != "redis" || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("defaults: %+v", cfg)
	}
	if cfg.Oracle.Kind != "account" || cfg.Oracle.MaxAgeSec != 60 {
		t.Errorf("oracle defaults: %+v", cfg.Oracle)
	}
	if cfg.Rent.LamportsPerByteYear != 3480 || cfg.Rent.ExemptionThreshold != 2 {
		t.Errorf("rent defaults: %+v", cfg.Rent)
	}
	if cfg.ProgramAddress() != address.MustParse(testProgramID) {
		t.Errorf("program: %s", cfg.ProgramAddress())
	}
	if _, ok := cfg.AddressSpace().(address.Ed25519Space); !ok {
		t.Errorf("space: %T", cfg.AddressSpace())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PROGRAM_ID", testProgramID)
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("GENESIS_FILE", "/app/genesis.yaml")
	t.Setenv("ADDRESS_SPACE", "keccak")
	t.Setenv("ORACLE_KIND", "http")
	t.Setenv("ORACLE_URL", "http://oracle:9000")
	t.Setenv("ORACLE_MAX_AGE_SEC", "15")
	t.Setenv("RENT_LAMPORTS_PER_BYTE_YEAR", "10")
	t.Setenv("PORT", "9090")
	t.Setenv("OPERATOR_ADDRESSES", "0x000000000000000000000000000000000000bEEF,0x000000000000000000000000000000000000dEaD")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ledger.Backend != "memory" || cfg.Ledger.GenesisFile != "/app/genesis.yaml" || cfg.Server.Port != 9090 {
		t.Errorf("overrides: %+v", cfg)
	}
	if cfg.Oracle.URL != "http://oracle:9000" || cfg.Oracle.MaxAgeSec != 15 {
		t.Errorf("oracle: %+v", cfg.Oracle)
	}
	if cfg.Rent.LamportsPerByteYear != 10 {
		t.Errorf("rent: %+v", cfg.Rent)
	}
	if ops := cfg.OperatorAddresses(); len(ops) != 2 || ops[1].Hex() != "0x000000000000000000000000000000000000dEaD" {
		t.Errorf("operators: %v", ops)
	}
	if _, ok := cfg.AddressSpace().(address.KeccakSpace); !ok {
		t.Errorf("space: %T", cfg.AddressSpace())
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing program", map[string]string{}, "PROGRAM_ID"},
		{"bad program", map[string]string{"PROGRAM_ID": "nope"}, "PROGRAM_ID"},
		{"bad space", map[string]string{"ADDRESS_SPACE": "sha3"}, "ADDRESS_SPACE"},
		{"bad backend", map[string]string{"LEDGER_BACKEND": "postgres"}, "LEDGER_BACKEND"},
		{"http without url", map[string]string{"ORACLE_KIND": "http"}, "ORACLE_URL"},
		{"zero max age", map[string]string{"ORACLE_MAX_AGE_SEC": "0"}, "ORACLE_MAX_AGE_SEC"},
		{"bad operator", map[string]string{"OPERATOR_ADDRESSES": "alice"}, "OPERATOR_ADDRESSES"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := tc.env["PROGRAM_ID"]; !ok && tc.want != "PROGRAM_ID" {
				t.Setenv("PROGRAM_ID", testProgramID)
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("got %v want error mentioning %s", err, tc.want)
			}
		})
	}
}
