// cmd/derive prints the program-derived addresses a client needs before
// building instructions:
//
//   - authorized echo buffer for (authority, owner seed)
//   - vending machine buffer for (mint, price)
//   - exchange booth state and vaults for (admin, base mint, quote mint, oracle)
//
// Usage:
//
//	go run ./cmd/derive/ --program <id> buffer  --authority <addr> --seed 7
//	go run ./cmd/derive/ --program <id> vending --mint <addr> --price 1000
//	go run ./cmd/derive/ --program <id> booth   --admin <addr> --base <addr> --quote <addr> --oracle <addr>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/booth"
	"github.com/0gfoundation/exchange-booth/internal/echo"
)

func main() {
	programStr := flag.String("program", "", "Program ID (base58)")
	spaceName := flag.String("space", "ed25519", "Address space: ed25519 or keccak")
	flag.Parse()

	if flag.NArg() == 0 {
		fatalf("usage: derive [--program id] [--space name] buffer|vending|booth [flags]")
	}
	program := mustAddress("program", *programStr)
	space, err := address.SpaceByName(*spaceName)
	if err != nil {
		fatalf("%v", err)
	}

	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "buffer":
		fs := flag.NewFlagSet("buffer", flag.ExitOnError)
		authority := fs.String("authority", "", "Buffer authority")
		seed := fs.Uint64("seed", 0, "Owner seed")
		fs.Parse(args) //nolint:errcheck
		addr, bump, err := echo.AuthorizedBufferAddress(space, program, mustAddress("authority", *authority), *seed)
		if err != nil {
			fatalf("derive buffer: %v", err)
		}
		fmt.Printf("buffer: %s (bump %d)\n", addr, bump)

	case "vending":
		fs := flag.NewFlagSet("vending", flag.ExitOnError)
		mint := fs.String("mint", "", "Payment mint")
		price := fs.Uint64("price", 0, "Price per write in raw token units")
		fs.Parse(args) //nolint:errcheck
		addr, bump, err := echo.VendingMachineAddress(space, program, mustAddress("mint", *mint), *price)
		if err != nil {
			fatalf("derive vending machine: %v", err)
		}
		fmt.Printf("vending machine: %s (bump %d)\n", addr, bump)

	case "booth":
		fs := flag.NewFlagSet("booth", flag.ExitOnError)
		admin := fs.String("admin", "", "Booth admin")
		base := fs.String("base", "", "Base mint")
		quote := fs.String("quote", "", "Quote mint")
		oracleStr := fs.String("oracle", "", "Oracle account")
		fs.Parse(args) //nolint:errcheck
		addrs, err := booth.DeriveAddresses(space, program,
			mustAddress("admin", *admin),
			mustAddress("base", *base),
			mustAddress("quote", *quote),
			mustAddress("oracle", *oracleStr),
		)
		if err != nil {
			fatalf("derive booth: %v", err)
		}
		fmt.Printf("state:       %s (bump %d)\n", addrs.State, addrs.StateBump)
		fmt.Printf("vault base:  %s (bump %d)\n", addrs.VaultBase, addrs.BaseBump)
		fmt.Printf("vault quote: %s (bump %d)\n", addrs.VaultQuote, addrs.QuoteBump)

	default:
		fatalf("unknown command %q", flag.Arg(0))
	}
}

func mustAddress(name, s string) address.Address {
	if s == "" {
		fatalf("--%s is required", name)
	}
	a, err := address.Parse(s)
	if err != nil {
		fatalf("--%s: %v", name, err)
	}
	return a
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
