// castellan-cli is an offline signing tool for UTXO chains: it manages
// encrypted wallet files, derives addresses, and builds and signs
// transactions from externally supplied UTXO snapshots. It never talks
// to a network; signed transactions are printed as hex for broadcast
// elsewhere.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/castellan/castellan/config"
	"github.com/castellan/castellan/internal/chains"
	"github.com/castellan/castellan/internal/log"
	"github.com/castellan/castellan/internal/store"
	"github.com/castellan/castellan/internal/wallet"
	"github.com/castellan/castellan/pkg/crypto"
	"github.com/castellan/castellan/pkg/hdkey"
	"github.com/castellan/castellan/pkg/script"
	"github.com/castellan/castellan/pkg/tx"
	"github.com/castellan/castellan/pkg/types"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	dataDir := ""
	network := ""
	logLevel := ""

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case args[0] == "--log-level" && len(args) > 1:
			logLevel = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--log-level="):
			logLevel = args[0][len("--log-level="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	cfg := config.Default(config.NetworkType(network))
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	// Config file, then flags override.
	values, err := config.LoadFile(cfg.ConfigFile())
	if err != nil {
		fatal("load config: %v", err)
	}
	if err := config.ApplyFileConfig(cfg, values); err != nil {
		fatal("apply config: %v", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if network != "" {
		cfg.Network = config.NetworkType(network)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		fatal("config: %v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "wallet":
		cmdWallet(cmdArgs, cfg)
	case "address":
		cmdAddress(cmdArgs, cfg)
	case "utxo":
		cmdUTXO(cmdArgs, cfg)
	case "send":
		cmdSend(cmdArgs, cfg)
	case "sweep":
		cmdSweep(cmdArgs, cfg)
	case "chains":
		cmdChains()
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: castellan-cli [global flags] <command> [flags]

Global flags:
  --datadir <path>    Data directory (default: ~/.castellan)
  --network <net>     mainnet (default) or testnet
  --log-level <lvl>   debug, info, warn, or error

Commands:
  wallet create --name <n> [--words 12|24] [--passphrase <p>]
                                  Create a new wallet
  wallet import --name <n> --mnemonic "..." [--passphrase <p>]
                                  Import wallet from mnemonic
  wallet list                     List wallets
  wallet accounts --wallet <w>    List wallet accounts
  wallet add-account --wallet <w> --chain <sym> [--account <n>] [--label <l>]
                                  Add a chain account to a wallet
  wallet export-key --wallet <w> --chain <sym> [--account <n>] [--change <0|1>] [--index <i>]
                                  Export one private key as WIF
  wallet delete --name <n>        Delete a wallet file

  address new --wallet <w> --chain <sym> [--account <n>]
                                  Derive the next receive address
  address list --wallet <w> --chain <sym> [--account <n>]
                                  List derived addresses

  utxo import --chain <sym> --address <a> --file <utxos.json>
                                  Store a UTXO snapshot for an address
  utxo list --chain <sym> --address <a>
                                  Show the stored UTXO snapshot

  send --wallet <w> --chain <sym> --to <addr> --amount <sats> --utxos <file.json>
       [--account <n>] [--fee-rate <sat/vB>]
                                  Build and sign a payment
  sweep --wallet <w> --chain <sym> --to <addr> --utxos <file.json>
        [--account <n>] [--fee-rate <sat/vB>] [--max-fee-ratio <r>]
                                  Sweep all confirmed UTXOs to one address

  chains                          List supported chains

UTXO files are JSON arrays of owned outputs:
  [{"txid":"...","vout":0,"value":100000,"confirmed":true,
    "change":0,"index":0,"class":"p2wpkh"}]
`)
}

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(args []string, cfg *config.Config) {
	if len(args) < 1 {
		fatal("Usage: castellan-cli wallet <create|import|list|accounts|add-account|export-key|delete> [flags]")
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(args[1:], cfg)
	case "import":
		cmdWalletImport(args[1:], cfg)
	case "list":
		cmdWalletList(cfg)
	case "accounts":
		cmdWalletAccounts(args[1:], cfg)
	case "add-account":
		cmdWalletAddAccount(args[1:], cfg)
	case "export-key":
		cmdWalletExportKey(args[1:], cfg)
	case "delete":
		cmdWalletDelete(args[1:], cfg)
	default:
		fatal("Unknown wallet command: %s", args[0])
	}
}

func cmdWalletCreate(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	words := fs.Int("words", 24, "Mnemonic length (12 or 24)")
	passphrase := fs.String("passphrase", "", "Optional BIP-39 passphrase")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: castellan-cli wallet create --name <name> [--words 12|24]")
	}

	bits := wallet.MnemonicEntropyBits24
	if *words == 12 {
		bits = wallet.MnemonicEntropyBits12
	}
	mnemonic, err := wallet.GenerateMnemonicBits(bits)
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	createWallet(cfg, *name, mnemonic, *passphrase)
	fmt.Printf("\nWallet created: %s\n", *name)
}

func cmdWalletImport(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
	passphrase := fs.String("passphrase", "", "Optional BIP-39 passphrase")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: castellan-cli wallet import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	if !wallet.ValidateMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	createWallet(cfg, *name, *mnemonic, *passphrase)
	fmt.Printf("Wallet imported: %s\n", *name)
}

// createWallet runs the shared create/import flow: prompt for the
// password twice, derive and encrypt the seed, register a default
// Bitcoin account, and print the first receive address.
func createWallet(cfg *config.Config, name, mnemonic, passphrase string) {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		fatal("derive seed: %v", err)
	}

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("create keystore: %v", err)
	}
	if err := ks.Create(name, seed, password, wallet.DefaultParams()); err != nil {
		fatal("create wallet: %v", err)
	}

	kr, err := wallet.NewKeyring(seed, hdkey.Strict())
	crypto.Zero(seed)
	if err != nil {
		fatal("build keyring: %v", err)
	}
	defer kr.Lock()

	params, err := chains.Get(defaultChain(cfg))
	if err != nil {
		fatal("chain params: %v", err)
	}

	addr, used, err := kr.Address(params, 0, wallet.ChangeExternal, 0)
	if err != nil {
		fatal("derive address: %v", err)
	}

	if err := ks.AddAccount(name, wallet.AccountEntry{
		Chain:   params.Symbol,
		Account: 0,
		Name:    "Default",
	}); err != nil {
		fatal("add account: %v", err)
	}
	if err := ks.SetNextIndex(name, params.Symbol, 0, wallet.ChangeExternal, used+1); err != nil {
		fatal("advance index: %v", err)
	}

	recordAddress(cfg, params, 0, wallet.ChangeExternal, used, addr)

	fp, err := ks.Fingerprint(name)
	if err != nil {
		fatal("read fingerprint: %v", err)
	}
	fmt.Printf("Fingerprint: %s\n", fp)
	fmt.Printf("Address:     %s\n", addr)
}

func cmdWalletList(cfg *config.Config) {
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func cmdWalletAccounts(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("wallet accounts", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: castellan-cli wallet accounts --wallet <name>")
	}

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	accounts, err := ks.ListAccounts(*walletName)
	if err != nil {
		fatal("list accounts: %v", err)
	}
	if len(accounts) == 0 {
		fmt.Println("No accounts found.")
		return
	}
	for _, acct := range accounts {
		fmt.Printf("  %s/%d  %s  (next external %d, next change %d)\n",
			acct.Chain, acct.Account, acct.Name,
			acct.NextExternalIndex, acct.NextChangeIndex)
	}
}

func cmdWalletAddAccount(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("wallet add-account", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	chain := fs.String("chain", "", "Chain symbol")
	account := fs.Uint("account", 0, "Account number")
	label := fs.String("label", "", "Account label")
	fs.Parse(args)

	if *walletName == "" || *chain == "" {
		fatal("Usage: castellan-cli wallet add-account --wallet <name> --chain <sym> [--account <n>]")
	}

	params, err := chains.Get(*chain)
	if err != nil {
		fatal("chain params: %v", err)
	}

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}

	acctName := *label
	if acctName == "" {
		acctName = fmt.Sprintf("%s %d", params.Name, *account)
	}
	if err := ks.AddAccount(*walletName, wallet.AccountEntry{
		Chain:   params.Symbol,
		Account: uint32(*account),
		Name:    acctName,
	}); err != nil {
		fatal("add account: %v", err)
	}

	fmt.Printf("Account added: %s/%d (%s)\n", params.Symbol, *account, acctName)
}

func cmdWalletExportKey(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("wallet export-key", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	chain := fs.String("chain", "", "Chain symbol")
	account := fs.Uint("account", 0, "Account number")
	change := fs.Uint("change", 0, "Branch (0 external, 1 internal)")
	index := fs.Uint("index", 0, "Derivation index")
	fs.Parse(args)

	if *walletName == "" || *chain == "" {
		fatal("Usage: castellan-cli wallet export-key --wallet <name> --chain <sym> [--index <i>]")
	}

	params, err := chains.Get(*chain)
	if err != nil {
		fatal("chain params: %v", err)
	}

	kr := unlockKeyring(cfg, *walletName, hdkey.Strict())
	defer kr.Lock()

	wif, err := kr.ExportWIF(params, uint32(*account), uint32(*change), uint32(*index))
	if err != nil {
		fatal("export key: %v", err)
	}

	fmt.Fprintln(os.Stderr, "WARNING: anyone with this key can spend the funds it controls.")
	fmt.Println(wif)
}

func cmdWalletDelete(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("wallet delete", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: castellan-cli wallet delete --name <name>")
	}

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Delete(*name); err != nil {
		fatal("delete wallet: %v", err)
	}
	fmt.Printf("Wallet deleted: %s\n", *name)
}

// ── address ─────────────────────────────────────────────────────────────

func cmdAddress(args []string, cfg *config.Config) {
	if len(args) < 1 {
		fatal("Usage: castellan-cli address <new|list> [flags]")
	}

	switch args[0] {
	case "new":
		cmdAddressNew(args[1:], cfg)
	case "list":
		cmdAddressList(args[1:], cfg)
	default:
		fatal("Unknown address command: %s", args[0])
	}
}

func cmdAddressNew(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("address new", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	chain := fs.String("chain", "", "Chain symbol")
	account := fs.Uint("account", 0, "Account number")
	fs.Parse(args)

	if *walletName == "" || *chain == "" {
		fatal("Usage: castellan-cli address new --wallet <name> --chain <sym> [--account <n>]")
	}

	params, err := chains.Get(*chain)
	if err != nil {
		fatal("chain params: %v", err)
	}

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	next, err := ks.NextIndex(*walletName, params.Symbol, uint32(*account), wallet.ChangeExternal)
	if err != nil {
		fatal("next index: %v", err)
	}

	// Rotation may skip an invalid index, so the keyring reports the
	// index actually used and the counter advances past it.
	kr := unlockKeyring(cfg, *walletName, hdkey.NextIndex(0))
	defer kr.Lock()

	addr, used, err := kr.Address(params, uint32(*account), wallet.ChangeExternal, next)
	if err != nil {
		fatal("derive address: %v", err)
	}
	if err := ks.SetNextIndex(*walletName, params.Symbol, uint32(*account), wallet.ChangeExternal, used+1); err != nil {
		fatal("advance index: %v", err)
	}

	recordAddress(cfg, params, uint32(*account), wallet.ChangeExternal, used, addr)

	fmt.Printf("New address [%d]: %s\n", used, addr)
}

func cmdAddressList(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("address list", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	chain := fs.String("chain", "", "Chain symbol")
	account := fs.Uint("account", 0, "Account number")
	fs.Parse(args)

	if *walletName == "" || *chain == "" {
		fatal("Usage: castellan-cli address list --wallet <name> --chain <sym> [--account <n>]")
	}

	params, err := chains.Get(*chain)
	if err != nil {
		fatal("chain params: %v", err)
	}

	book, closeBook := openBook(cfg)
	defer closeBook()

	entries, err := book.Addresses(params.Symbol, uint32(*account))
	if err != nil {
		fatal("list addresses: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("No addresses found.")
		return
	}
	for _, e := range entries {
		branch := "receive"
		if e.Change == wallet.ChangeInternal {
			branch = "change"
		}
		fmt.Printf("  [%s %d] %-8s %s  %s\n", branch, e.Index, e.Class, e.Address, e.Path)
	}
}

// ── utxo ────────────────────────────────────────────────────────────────

func cmdUTXO(args []string, cfg *config.Config) {
	if len(args) < 1 {
		fatal("Usage: castellan-cli utxo <import|list> [flags]")
	}

	switch args[0] {
	case "import":
		cmdUTXOImport(args[1:], cfg)
	case "list":
		cmdUTXOList(args[1:], cfg)
	default:
		fatal("Unknown utxo command: %s", args[0])
	}
}

func cmdUTXOImport(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("utxo import", flag.ExitOnError)
	chain := fs.String("chain", "", "Chain symbol")
	addr := fs.String("address", "", "Address the outputs pay to")
	file := fs.String("file", "", "JSON file of UTXOs")
	fs.Parse(args)

	if *chain == "" || *addr == "" || *file == "" {
		fatal("Usage: castellan-cli utxo import --chain <sym> --address <a> --file <utxos.json>")
	}

	params, err := chains.Get(*chain)
	if err != nil {
		fatal("chain params: %v", err)
	}
	if _, _, err := script.PayToAddress(*addr, params.AddressParams()); err != nil {
		fatal("address: %v", err)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fatal("read file: %v", err)
	}
	var utxos []utxoRecord
	if err := json.Unmarshal(data, &utxos); err != nil {
		fatal("decode UTXOs: %v", err)
	}

	snapshot := make([]tx.UTXO, 0, len(utxos))
	for i, u := range utxos {
		parsed, err := u.toUTXO()
		if err != nil {
			fatal("UTXO %d: %v", i, err)
		}
		snapshot = append(snapshot, parsed)
	}

	book, closeBook := openBook(cfg)
	defer closeBook()

	if err := book.PutUTXOs(params.Symbol, *addr, snapshot); err != nil {
		fatal("store UTXOs: %v", err)
	}
	fmt.Printf("Stored %d UTXOs for %s\n", len(snapshot), *addr)
}

func cmdUTXOList(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("utxo list", flag.ExitOnError)
	chain := fs.String("chain", "", "Chain symbol")
	addr := fs.String("address", "", "Address")
	fs.Parse(args)

	if *chain == "" || *addr == "" {
		fatal("Usage: castellan-cli utxo list --chain <sym> --address <a>")
	}

	book, closeBook := openBook(cfg)
	defer closeBook()

	utxos, err := book.UTXOs(*chain, *addr)
	if err != nil {
		fatal("load UTXOs: %v", err)
	}
	if len(utxos) == 0 {
		fmt.Println("No UTXOs stored.")
		return
	}

	var total uint64
	for _, u := range utxos {
		state := "confirmed"
		if !u.Confirmed {
			state = "pending"
		}
		fmt.Printf("  %s:%d  %12d  %s\n", u.Outpoint.TxID.Display(), u.Outpoint.Vout, u.Value, state)
		if u.Confirmed {
			total += u.Value
		}
	}
	fmt.Printf("Confirmed total: %d\n", total)
}

// ── send / sweep ────────────────────────────────────────────────────────

func cmdSend(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	chain := fs.String("chain", "", "Chain symbol")
	to := fs.String("to", "", "Destination address")
	amount := fs.String("amount", "", "Amount in satoshis")
	feeRate := fs.Float64("fee-rate", cfg.Fee.Rate, "Fee rate in sat/vB")
	account := fs.Uint("account", 0, "Account number")
	utxoFile := fs.String("utxos", "", "JSON file of owned UTXOs")
	fs.Parse(args)

	if *walletName == "" || *chain == "" || *to == "" || *amount == "" || *utxoFile == "" {
		fatal("Usage: castellan-cli send --wallet <w> --chain <sym> --to <addr> --amount <sats> --utxos <file.json>")
	}

	value, err := strconv.ParseUint(*amount, 10, 64)
	if err != nil || value == 0 {
		fatal("invalid amount %q", *amount)
	}

	params, err := chains.Get(*chain)
	if err != nil {
		fatal("chain params: %v", err)
	}
	utxos := loadOwnedUTXOs(*utxoFile)

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	changeIdx, err := ks.NextIndex(*walletName, params.Symbol, uint32(*account), wallet.ChangeInternal)
	if err != nil {
		fatal("next change index: %v", err)
	}

	kr := unlockKeyring(cfg, *walletName, hdkey.Strict())
	defer kr.Lock()

	signed, err := kr.NewTransaction(params, wallet.SendRequest{
		Account:     uint32(*account),
		To:          *to,
		Amount:      value,
		FeeRate:     *feeRate,
		UTXOs:       utxos,
		ChangeIndex: changeIdx,
	})
	if err != nil {
		fatal("build transaction: %v", err)
	}

	// The change output, if any, consumed the internal index.
	if err := ks.SetNextIndex(*walletName, params.Symbol, uint32(*account), wallet.ChangeInternal, changeIdx+1); err != nil {
		fatal("advance change index: %v", err)
	}

	printSigned(signed)
}

func cmdSweep(args []string, cfg *config.Config) {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	chain := fs.String("chain", "", "Chain symbol")
	to := fs.String("to", "", "Destination address")
	feeRate := fs.Float64("fee-rate", cfg.Fee.Rate, "Fee rate in sat/vB")
	maxRatio := fs.Float64("max-fee-ratio", cfg.Fee.MaxSweepRatio, "Maximum fee fraction of swept total")
	account := fs.Uint("account", 0, "Account number")
	utxoFile := fs.String("utxos", "", "JSON file of owned UTXOs")
	fs.Parse(args)

	if *walletName == "" || *chain == "" || *to == "" || *utxoFile == "" {
		fatal("Usage: castellan-cli sweep --wallet <w> --chain <sym> --to <addr> --utxos <file.json>")
	}

	params, err := chains.Get(*chain)
	if err != nil {
		fatal("chain params: %v", err)
	}
	utxos := loadOwnedUTXOs(*utxoFile)

	kr := unlockKeyring(cfg, *walletName, hdkey.Strict())
	defer kr.Lock()

	signed, err := kr.Sweep(params, wallet.SweepRequest{
		Account:     uint32(*account),
		To:          *to,
		FeeRate:     *feeRate,
		MaxFeeRatio: *maxRatio,
		UTXOs:       utxos,
	})
	if err != nil {
		fatal("build sweep: %v", err)
	}

	printSigned(signed)
}

// ── chains ──────────────────────────────────────────────────────────────

func cmdChains() {
	for _, p := range chains.List() {
		kind := "legacy"
		if p.SupportsSegWit {
			kind = "segwit"
		}
		fmt.Printf("  %-8s %-18s m/%d'/%d'  %s\n", p.Symbol, p.Name, p.Purpose, p.CoinType, kind)
	}
}

// ── helpers ─────────────────────────────────────────────────────────────

// utxoRecord is the on-disk JSON shape of one owned output. The txid is
// in display order, the class is "p2pkh" or "p2wpkh".
type utxoRecord struct {
	TxID      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	Value     uint64 `json:"value"`
	Confirmed bool   `json:"confirmed"`
	Change    uint32 `json:"change"`
	Index     uint32 `json:"index"`
	Class     string `json:"class"`
}

func (r utxoRecord) toUTXO() (tx.UTXO, error) {
	txid, err := types.ParseDisplay(r.TxID)
	if err != nil {
		return tx.UTXO{}, fmt.Errorf("txid: %w", err)
	}
	return tx.UTXO{
		Outpoint:  types.Outpoint{TxID: txid, Vout: r.Vout},
		Value:     r.Value,
		Confirmed: r.Confirmed,
	}, nil
}

func (r utxoRecord) toOwned() (wallet.OwnedUTXO, error) {
	base, err := r.toUTXO()
	if err != nil {
		return wallet.OwnedUTXO{}, err
	}
	class, err := parseClass(r.Class)
	if err != nil {
		return wallet.OwnedUTXO{}, err
	}
	return wallet.OwnedUTXO{
		UTXO:   base,
		Change: r.Change,
		Index:  r.Index,
		Class:  class,
	}, nil
}

func parseClass(s string) (script.Class, error) {
	switch s {
	case "p2pkh":
		return script.ClassP2PKH, nil
	case "p2wpkh":
		return script.ClassP2WPKH, nil
	default:
		return 0, fmt.Errorf("unsupported script class %q", s)
	}
}

func loadOwnedUTXOs(path string) []wallet.OwnedUTXO {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("read UTXO file: %v", err)
	}
	var records []utxoRecord
	if err := json.Unmarshal(data, &records); err != nil {
		fatal("decode UTXO file: %v", err)
	}
	if len(records) == 0 {
		fatal("UTXO file is empty")
	}

	owned := make([]wallet.OwnedUTXO, 0, len(records))
	for i, r := range records {
		u, err := r.toOwned()
		if err != nil {
			fatal("UTXO %d: %v", i, err)
		}
		owned = append(owned, u)
	}
	return owned
}

// unlockKeyring prompts for the wallet password and builds a keyring
// from the decrypted seed. The seed copy is zeroed before return.
func unlockKeyring(cfg *config.Config, walletName string, policy hdkey.Policy) *wallet.Keyring {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	seed, err := ks.Load(walletName, password)
	crypto.Zero(password)
	if err != nil {
		fatal("load wallet: %v", err)
	}

	kr, err := wallet.NewKeyring(seed, policy)
	crypto.Zero(seed)
	if err != nil {
		fatal("build keyring: %v", err)
	}
	return kr
}

// recordAddress persists a derived address to the address book. Book
// failures are logged, not fatal: the keystore counter has already
// advanced and the address is valid regardless.
func recordAddress(cfg *config.Config, params *chains.Params, account, change, index uint32, addr string) {
	book, closeBook := openBook(cfg)
	defer closeBook()

	path := fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", params.Purpose, params.CoinType, account, change, index)
	err := book.PutAddress(store.AddressEntry{
		Chain:   params.Symbol,
		Account: account,
		Change:  change,
		Index:   index,
		Address: addr,
		Path:    path,
		Class:   params.PreferredClass().String(),
	})
	if err != nil {
		log.Warn().Err(err).Str("address", addr).Msg("address book write failed")
	}
}

func openBook(cfg *config.Config) (*store.AddressBook, func()) {
	db, err := store.NewBadger(cfg.BookDir())
	if err != nil {
		fatal("open address book: %v", err)
	}
	return store.NewAddressBook(db), func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("address book close failed")
		}
	}
}

func printSigned(signed *tx.Signed) {
	out, err := json.MarshalIndent(signed, "", "  ")
	if err != nil {
		fatal("encode result: %v", err)
	}
	fmt.Println(string(out))
}

// defaultChain picks the chain for the default account created with a
// new wallet: Bitcoin, on whichever network the CLI is running.
func defaultChain(cfg *config.Config) string {
	if cfg.Network == config.Testnet {
		return "BTC-TEST"
	}
	return "BTC"
}


func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
