// Package runtime hosts programs: it runs transactions of instructions
// against the ledger with exclusive access to their write sets, lets programs
// invoke each other, and commits all account changes or none.
package runtime

import (
	"bytes"
	"context"
	"fmt"
	"math/bits"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
	"github.com/0gfoundation/exchange-booth/internal/errs"
	"github.com/0gfoundation/exchange-booth/internal/ledger"
	"github.com/0gfoundation/exchange-booth/internal/system"
	"github.com/0gfoundation/exchange-booth/internal/token"
)

// MaxInvokeDepth bounds nested invocations below a transaction instruction.
const MaxInvokeDepth = 4

// Processor executes one instruction of a program.
type Processor interface {
	Process(ctx context.Context, accounts []*account.Info, data []byte) error
}

// Env is what the runtime lends a program for one invocation.
type Env struct {
	Program address.Address
	Space   address.Space
	Invoker account.Invoker
	Alloc   account.Allocator
	Tokens  *token.Client
	Log     *zap.Logger
}

// Factory builds a program's processor for one invocation.
type Factory func(env Env) Processor

type Transaction struct {
	Instructions []account.Instruction
	Signers      []address.Address
}

type Receipt struct {
	ID       string
	Changed  []address.Address
	Duration time.Duration
}

type Runtime struct {
	store   ledger.Store
	space   address.Space
	rent    system.Rent
	locks   *lockTable
	metrics *Metrics
	log     *zap.Logger

	mu       sync.RWMutex
	programs map[address.Address]Factory
}

// New returns a runtime with the system and token programs registered.
func New(store ledger.Store, space address.Space, rent system.Rent, metrics *Metrics, log *zap.Logger) *Runtime {
	r := &Runtime{
		store:    store,
		space:    space,
		rent:     rent,
		locks:    newLockTable(),
		metrics:  metrics,
		log:      log,
		programs: make(map[address.Address]Factory),
	}
	r.Register(account.SystemProgramID, func(env Env) Processor { return system.NewProgram(env.Log) })
	r.Register(account.TokenProgramID, func(env Env) Processor { return token.NewProgram(env.Log) })
	return r
}

func (r *Runtime) Register(program address.Address, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.programs[program] = f
}

func (r *Runtime) factory(program address.Address) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.programs[program]
	return f, ok
}

// Execute runs tx and commits its effects atomically.
func (r *Runtime) Execute(ctx context.Context, tx Transaction) (*Receipt, error) {
	id := uuid.NewString()
	start := time.Now()
	log := r.log.With(zap.String("tx", id))

	changed, err := r.execute(ctx, tx, log)
	elapsed := time.Since(start)
	r.metrics.duration.Observe(elapsed.Seconds())
	if err != nil {
		kind := errs.KindOf(err)
		r.metrics.transactions.WithLabelValues("failed", kind.String()).Inc()
		log.Warn("transaction failed", zap.Error(err), zap.Stringer("kind", kind), zap.Duration("duration", elapsed))
		return nil, fmt.Errorf("tx %s: %w", id, err)
	}
	r.metrics.transactions.WithLabelValues("committed", "").Inc()
	log.Info("transaction committed",
		zap.Int("instructions", len(tx.Instructions)),
		zap.Int("changed", len(changed)),
		zap.Duration("duration", elapsed),
	)
	return &Receipt{ID: id, Changed: changed, Duration: elapsed}, nil
}

func (r *Runtime) execute(ctx context.Context, tx Transaction, log *zap.Logger) ([]address.Address, error) {
	if len(tx.Instructions) == 0 {
		return nil, errs.Wrapf(errs.ErrInvalidInstruction, "transaction has no instructions")
	}
	signers := make(map[address.Address]bool, len(tx.Signers))
	for _, s := range tx.Signers {
		signers[s] = true
	}
	writable := make(map[address.Address]bool)
	var keys []address.Address
	for i, ix := range tx.Instructions {
		if _, ok := r.factory(ix.Program); !ok {
			return nil, errs.Wrapf(errs.ErrInvalidInstruction, "instruction %d: unknown program %s", i, ix.Program)
		}
		for _, m := range ix.Accounts {
			if m.IsSigner && !signers[m.Address] {
				return nil, errs.Wrapf(errs.ErrMissingSignature, "instruction %d: %s", i, m.Address)
			}
			if _, seen := writable[m.Address]; !seen {
				keys = append(keys, m.Address)
			}
			writable[m.Address] = writable[m.Address] || m.IsWritable
		}
	}

	var writeSet []address.Address
	for _, k := range keys {
		if writable[k] {
			writeSet = append(writeSet, k)
		}
	}
	sort.Slice(writeSet, func(i, j int) bool { return bytes.Compare(writeSet[i][:], writeSet[j][:]) < 0 })

	waitStart := time.Now()
	if err := r.locks.acquire(ctx, writeSet); err != nil {
		return nil, err
	}
	defer r.locks.release(writeSet)
	r.metrics.lockWait.Observe(time.Since(waitStart).Seconds())

	infos, versions, err := ledger.Load(ctx, r.store, keys)
	if err != nil {
		return nil, err
	}
	snapshot := make(map[address.Address]*account.Info, len(infos))
	for k, info := range infos {
		snapshot[k] = info.Clone()
		info.IsSigner = signers[k]
		info.IsWritable = writable[k]
	}

	x := &execution{r: r, log: log}
	root := &frame{views: infos}
	for i, ix := range tx.Instructions {
		if err := x.invoke(ctx, root, ix, nil, 0); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}

	var updates []*account.Info
	var changed []address.Address
	for _, k := range keys {
		if !infos[k].Equal(snapshot[k]) {
			updates = append(updates, infos[k])
			changed = append(changed, k)
		}
	}
	if err := r.store.Commit(ctx, updates, versions); err != nil {
		return nil, err
	}
	return changed, nil
}

// frame is one program invocation. views are the accounts the program sees;
// pre is their state at the last verified point. The transaction root has
// no program and no pre.
type frame struct {
	program address.Address
	views   map[address.Address]*account.Info
	pre     map[address.Address]*account.Info
}

type execution struct {
	r   *Runtime
	log *zap.Logger
}

func (x *execution) invoke(ctx context.Context, parent *frame, ix account.Instruction, signerSeeds [][][]byte, depth int) error {
	if depth > MaxInvokeDepth {
		return errs.Wrapf(errs.ErrInvalidInstruction, "invocation depth %d exceeds %d", depth, MaxInvokeDepth)
	}
	factory, ok := x.r.factory(ix.Program)
	if !ok {
		return errs.Wrapf(errs.ErrInvalidInstruction, "unknown program %s", ix.Program)
	}

	derived := make(map[address.Address]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := x.r.space.Create(seeds, parent.program)
		if err != nil {
			return errs.Wrap(errs.ErrAddressMismatch, err)
		}
		derived[addr] = true
	}

	views := make(map[address.Address]*account.Info, len(ix.Accounts))
	list := make([]*account.Info, len(ix.Accounts))
	for i, m := range ix.Accounts {
		src, ok := parent.views[m.Address]
		if !ok {
			return errs.Wrapf(errs.ErrNotEnoughAccounts, "account %s not passed to %s", m.Address, parent.program)
		}
		if m.IsWritable && !src.IsWritable {
			return errs.Wrapf(errs.ErrNotWritable, "%s cannot grant write access to %s", parent.program, m.Address)
		}
		if m.IsSigner && !src.IsSigner && !derived[m.Address] {
			return errs.Wrapf(errs.ErrMissingSignature, "%s cannot sign for %s", parent.program, m.Address)
		}
		v, ok := views[m.Address]
		if !ok {
			v = src.Clone()
			views[m.Address] = v
		}
		v.IsSigner = v.IsSigner || m.IsSigner
		v.IsWritable = v.IsWritable || m.IsWritable
		list[i] = v
	}

	if parent.pre != nil {
		if err := verify(parent.program, parent.pre, parent.views); err != nil {
			return err
		}
	}

	child := &frame{program: ix.Program, views: views, pre: cloneAll(views)}
	inv := &invoker{x: x, frame: child, depth: depth + 1}
	env := Env{
		Program: ix.Program,
		Space:   x.r.space,
		Invoker: inv,
		Alloc:   system.NewAllocator(ix.Program, inv, x.r.rent),
		Tokens:  token.NewClient(inv),
		Log:     x.log.With(zap.String("program", ix.Program.String())),
	}
	x.r.metrics.instructions.WithLabelValues(ix.Program.String()).Inc()
	if err := factory(env).Process(ctx, list, ix.Data); err != nil {
		return err
	}
	if err := verify(ix.Program, child.pre, views); err != nil {
		return err
	}

	for k, v := range views {
		dst := parent.views[k]
		dst.Lamports = v.Lamports
		dst.Owner = v.Owner
		dst.Data = v.Data
	}
	if parent.pre != nil {
		parent.pre = cloneAll(parent.views)
	}
	return nil
}

// verify checks the changes a program made to its accounts since pre.
func verify(program address.Address, pre, post map[address.Address]*account.Info) error {
	var before, after, carry uint64
	for k, p := range pre {
		v := post[k]
		if before, carry = bits.Add64(before, p.Lamports, 0); carry != 0 {
			return errs.ErrArithmeticOverflow
		}
		if after, carry = bits.Add64(after, v.Lamports, 0); carry != 0 {
			return errs.ErrArithmeticOverflow
		}
		if v.Equal(p) {
			continue
		}
		if !v.IsWritable {
			return errs.Wrapf(errs.ErrNotWritable, "read-only account %s modified by %s", k, program)
		}
		if v.Executable != p.Executable {
			return errs.Wrapf(errs.ErrInvalidAccountData, "executable flag of %s changed", k)
		}
		if p.Owner != program {
			if v.Owner != p.Owner {
				return errs.Wrapf(errs.ErrOwnerMismatch, "%s reassigned %s owned by %s", program, k, p.Owner)
			}
			if !bytes.Equal(v.Data, p.Data) {
				return errs.Wrapf(errs.ErrOwnerMismatch, "%s modified data of %s owned by %s", program, k, p.Owner)
			}
			if v.Lamports < p.Lamports {
				return errs.Wrapf(errs.ErrOwnerMismatch, "%s debited %s owned by %s", program, k, p.Owner)
			}
		}
	}
	if before != after {
		return errs.Wrapf(errs.ErrInvalidAccountData, "%s changed total lamports from %d to %d", program, before, after)
	}
	return nil
}

func cloneAll(views map[address.Address]*account.Info) map[address.Address]*account.Info {
	out := make(map[address.Address]*account.Info, len(views))
	for k, v := range views {
		out[k] = v.Clone()
	}
	return out
}

type invoker struct {
	x     *execution
	frame *frame
	depth int
}

func (i *invoker) Invoke(ctx context.Context, ix account.Instruction, signerSeeds ...[][]byte) error {
	return i.x.invoke(ctx, i.frame, ix, signerSeeds, i.depth)
}
