package instruction

import (
	"github.com/0gfoundation/exchange-booth/internal/account"
	"github.com/0gfoundation/exchange-booth/internal/address"
)

func writable(a address.Address) account.Meta { return account.Meta{Address: a, IsWritable: true} }
func readonly(a address.Address) account.Meta { return account.Meta{Address: a} }
func signer(a address.Address) account.Meta   { return account.Meta{Address: a, IsSigner: true} }
func payer(a address.Address) account.Meta {
	return account.Meta{Address: a, IsSigner: true, IsWritable: true}
}

func build(program address.Address, args Args, metas ...account.Meta) account.Instruction {
	return account.Instruction{Program: program, Accounts: metas, Data: Encode(args)}
}

func NewEchoInstruction(program, buffer address.Address, data []byte) account.Instruction {
	return build(program, &EchoArgs{Data: data}, writable(buffer))
}

type InitializeAuthorizedEchoInstructionAccounts struct {
	Buffer    address.Address
	Authority address.Address
}

func NewInitializeAuthorizedEchoInstruction(program address.Address, accounts *InitializeAuthorizedEchoInstructionAccounts, args *InitializeAuthorizedEchoArgs) account.Instruction {
	return build(program, args,
		writable(accounts.Buffer),
		payer(accounts.Authority),
		readonly(account.SystemProgramID),
	)
}

type AuthorizedEchoInstructionAccounts struct {
	Buffer    address.Address
	Authority address.Address
}

func NewAuthorizedEchoInstruction(program address.Address, accounts *AuthorizedEchoInstructionAccounts, data []byte) account.Instruction {
	return build(program, &AuthorizedEchoArgs{Data: data},
		writable(accounts.Buffer),
		signer(accounts.Authority),
	)
}

type InitializeVendingMachineEchoInstructionAccounts struct {
	Buffer address.Address
	Mint   address.Address
	Payer  address.Address
}

func NewInitializeVendingMachineEchoInstruction(program address.Address, accounts *InitializeVendingMachineEchoInstructionAccounts, args *InitializeVendingMachineEchoArgs) account.Instruction {
	return build(program, args,
		writable(accounts.Buffer),
		readonly(accounts.Mint),
		payer(accounts.Payer),
		readonly(account.SystemProgramID),
	)
}

type VendingMachineEchoInstructionAccounts struct {
	Buffer    address.Address
	User      address.Address
	UserToken address.Address
	Mint      address.Address
}

func NewVendingMachineEchoInstruction(program address.Address, accounts *VendingMachineEchoInstructionAccounts, data []byte) account.Instruction {
	return build(program, &VendingMachineEchoArgs{Data: data},
		writable(accounts.Buffer),
		signer(accounts.User),
		writable(accounts.UserToken),
		writable(accounts.Mint),
		readonly(account.TokenProgramID),
	)
}

type InitializeExchangeBoothInstructionAccounts struct {
	Admin      address.Address
	MintBase   address.Address
	MintQuote  address.Address
	Oracle     address.Address
	State      address.Address
	VaultBase  address.Address
	VaultQuote address.Address
}

func NewInitializeExchangeBoothInstruction(program address.Address, accounts *InitializeExchangeBoothInstructionAccounts, args *InitializeExchangeBoothArgs) account.Instruction {
	return build(program, args,
		payer(accounts.Admin),
		readonly(accounts.MintBase),
		readonly(accounts.MintQuote),
		readonly(accounts.Oracle),
		readonly(account.TokenProgramID),
		readonly(account.SystemProgramID),
		readonly(account.RentSysvarID),
		writable(accounts.State),
		writable(accounts.VaultBase),
		writable(accounts.VaultQuote),
	)
}

// TransferInstructionAccounts serves both Deposit and Withdraw.
type TransferInstructionAccounts struct {
	Admin      address.Address
	AdminToken address.Address
	Vault      address.Address
	State      address.Address
}

func (a *TransferInstructionAccounts) metas() []account.Meta {
	return []account.Meta{
		signer(a.Admin),
		writable(a.AdminToken),
		readonly(account.TokenProgramID),
		writable(a.Vault),
		readonly(a.State),
	}
}

func NewDepositInstruction(program address.Address, accounts *TransferInstructionAccounts, args *DepositArgs) account.Instruction {
	return build(program, args, accounts.metas()...)
}

func NewWithdrawInstruction(program address.Address, accounts *TransferInstructionAccounts, args *WithdrawArgs) account.Instruction {
	return build(program, args, accounts.metas()...)
}

type ExchangeInstructionAccounts struct {
	User       address.Address
	UserInput  address.Address
	UserOutput address.Address
	Oracle     address.Address
	VaultBase  address.Address
	VaultQuote address.Address
	State      address.Address
}

func NewExchangeInstruction(program address.Address, accounts *ExchangeInstructionAccounts, args *ExchangeArgs) account.Instruction {
	return build(program, args,
		signer(accounts.User),
		writable(accounts.UserInput),
		writable(accounts.UserOutput),
		readonly(accounts.Oracle),
		readonly(account.TokenProgramID),
		writable(accounts.VaultBase),
		writable(accounts.VaultQuote),
		readonly(accounts.State),
	)
}

type CloseExchangeBoothInstructionAccounts struct {
	Admin      address.Address
	AdminBase  address.Address
	AdminQuote address.Address
	VaultBase  address.Address
	VaultQuote address.Address
	State      address.Address
}

func NewCloseExchangeBoothInstruction(program address.Address, accounts *CloseExchangeBoothInstructionAccounts) account.Instruction {
	return build(program, &CloseExchangeBoothArgs{},
		payer(accounts.Admin),
		writable(accounts.AdminBase),
		writable(accounts.AdminQuote),
		readonly(account.TokenProgramID),
		writable(accounts.VaultBase),
		writable(accounts.VaultQuote),
		writable(accounts.State),
	)
}

func NewUpdateFeeInstruction(program, admin, state address.Address, feeBps uint64) account.Instruction {
	return build(program, &UpdateFeeArgs{FeeBps: feeBps}, signer(admin), writable(state))
}
