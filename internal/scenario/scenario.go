// Package scenario describes a sequence of flashswap transactions in yaml
// and replays it against a local runtime.
//
// Every wallet, mint and token account is referred to by name. Names map to
// fixed addresses, so replaying a scenario always touches the same keys.
package scenario

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// Owner prefixes accepted in Token.Owner besides wallet names.
const (
	loanOwnerPrefix = "loan:" // loan authority of a fee, e.g. "loan:50"
	lpMintPrefix    = "lp:"   // LP mint of a pool, e.g. "lp:main"
)

// Scenario is the root yaml document.
type Scenario struct {
	Name string `yaml:"name"`
	// Clock is the unix time instructions see unless a step overrides it.
	Clock   int64    `yaml:"clock"`
	Wallets []Wallet `yaml:"wallets"`
	Mints   []Mint   `yaml:"mints"`
	Tokens  []Token  `yaml:"tokens"`
	Pools   []Pool   `yaml:"pools"`
	Steps   []Step   `yaml:"steps"`
}

type Wallet struct {
	Name     string `yaml:"name"`
	Lamports uint64 `yaml:"lamports"`
}

type Mint struct {
	Name      string `yaml:"name"`
	Decimals  uint8  `yaml:"decimals"`
	Authority string `yaml:"authority"`
}

// Token is a token account. Mint may name a pool's LP mint as "lp:<pool>";
// such accounts are created once the pool exists.
type Token struct {
	Name   string `yaml:"name"`
	Mint   string `yaml:"mint"`
	Owner  string `yaml:"owner"`
	Amount uint64 `yaml:"amount"`
}

type Pool struct {
	Name  string `yaml:"name"`
	Seed  uint64 `yaml:"seed"`
	MintX string `yaml:"mint_x"`
	MintY string `yaml:"mint_y"`
}

// Step is one transaction.
type Step struct {
	Name         string   `yaml:"name"`
	Signers      []string `yaml:"signers"`
	Clock        int64    `yaml:"clock"`
	Instructions []Op     `yaml:"instructions"`
	Expect       Expect   `yaml:"expect"`
}

// Expect is checked after a step. An empty Error means the step must succeed.
type Expect struct {
	Error    string            `yaml:"error"`
	Balances map[string]uint64 `yaml:"balances"`
}

// Op is one instruction. Which fields apply depends on Op.Op.
type Op struct {
	Op   string `yaml:"op"`
	Pool string `yaml:"pool"`
	User string `yaml:"user"`

	// token accounts of deposit, withdraw and swap
	X  string `yaml:"x"`
	Y  string `yaml:"y"`
	LP string `yaml:"lp"`

	Amount uint64 `yaml:"amount"`
	MaxX   uint64 `yaml:"max_x"`
	MaxY   uint64 `yaml:"max_y"`
	MinX   uint64 `yaml:"min_x"`
	MinY   uint64 `yaml:"min_y"`
	Min    uint64 `yaml:"min"`
	// Side is the input side of a swap, "x" or "y".
	Side string `yaml:"side"`
	// Expiration defaults to the step clock.
	Expiration *int64 `yaml:"expiration"`

	Fee       uint16 `yaml:"fee"`
	Authority string `yaml:"authority"`
	Pairs     []Pair `yaml:"pairs"`

	// plain token transfer
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type Pair struct {
	Protocol string `yaml:"protocol"`
	Borrower string `yaml:"borrower"`
	Amount   uint64 `yaml:"amount"`
}

// Operations understood by the runner.
const (
	OpInitialize      = "initialize"
	OpDeposit         = "deposit"
	OpWithdraw        = "withdraw"
	OpSwap            = "swap"
	OpUpdateAuthority = "update_authority"
	OpUpdateFee       = "update_fee"
	OpToggleLock      = "toggle_lock"
	OpRemoveAuthority = "remove_authority"
	OpLoan            = "loan"
	OpRepay           = "repay"
	OpTransfer        = "transfer"
)

// Load reads and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a scenario document.
func Parse(raw []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks names and references without touching a ledger.
func (sc *Scenario) Validate() error {
	names := make(map[string]string)
	declare := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%s with empty name", kind)
		}
		if len(name) > solana.MaxSeedLength {
			return fmt.Errorf("%s %q: name longer than %d bytes", kind, name, solana.MaxSeedLength)
		}
		if prev, ok := names[name]; ok {
			return fmt.Errorf("%s %q: name already used by a %s", kind, name, prev)
		}
		names[name] = kind
		return nil
	}
	expect := func(ctx, kind, name string) error {
		if names[name] != kind {
			return fmt.Errorf("%s: unknown %s %q", ctx, kind, name)
		}
		return nil
	}

	for _, w := range sc.Wallets {
		if err := declare("wallet", w.Name); err != nil {
			return err
		}
	}
	for _, m := range sc.Mints {
		if err := declare("mint", m.Name); err != nil {
			return err
		}
		if err := expect("mint "+m.Name, "wallet", m.Authority); err != nil {
			return err
		}
	}
	for _, p := range sc.Pools {
		if err := declare("pool", p.Name); err != nil {
			return err
		}
		if err := expect("pool "+p.Name, "mint", p.MintX); err != nil {
			return err
		}
		if err := expect("pool "+p.Name, "mint", p.MintY); err != nil {
			return err
		}
	}
	for _, tk := range sc.Tokens {
		if err := declare("token", tk.Name); err != nil {
			return err
		}
		ctx := "token " + tk.Name
		if pool, ok := strings.CutPrefix(tk.Mint, lpMintPrefix); ok {
			if err := expect(ctx, "pool", pool); err != nil {
				return err
			}
		} else if err := expect(ctx, "mint", tk.Mint); err != nil {
			return err
		}
		if fee, ok := strings.CutPrefix(tk.Owner, loanOwnerPrefix); ok {
			if _, err := parseFee(fee); err != nil {
				return fmt.Errorf("%s: %w", ctx, err)
			}
		} else if err := expect(ctx, "wallet", tk.Owner); err != nil {
			return err
		}
	}

	for i, st := range sc.Steps {
		ctx := fmt.Sprintf("step %d (%s)", i, st.Name)
		if len(st.Instructions) == 0 {
			return fmt.Errorf("%s: no instructions", ctx)
		}
		for _, s := range st.Signers {
			if err := expect(ctx, "wallet", s); err != nil {
				return err
			}
		}
		for name := range st.Expect.Balances {
			if err := expect(ctx+" expect", "token", name); err != nil {
				return err
			}
		}
		for j, op := range st.Instructions {
			if err := expect(fmt.Sprintf("%s instruction %d", ctx, j), "wallet", op.User); err != nil {
				return err
			}
			switch op.Op {
			case OpInitialize, OpDeposit, OpWithdraw, OpSwap, OpUpdateAuthority, OpUpdateFee,
				OpToggleLock, OpRemoveAuthority, OpLoan, OpRepay, OpTransfer:
			default:
				return fmt.Errorf("%s instruction %d: unknown op %q", ctx, j, op.Op)
			}
		}
	}
	return nil
}

func parseFee(s string) (uint16, error) {
	fee, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid fee %q: %w", s, err)
	}
	return uint16(fee), nil
}
