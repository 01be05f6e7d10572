package solana

type Environment string

const (
	EnvironmentDev  Environment = "https://api.devnet.solana.com"
	EnvironmentTest Environment = "https://api.testnet.solana.com"
	EnvironmentProd Environment = "https://api.mainnet-beta.solana.com"
)

// ParseEnvironment resolves a cluster moniker (devnet, testnet, mainnet-beta)
// to its public RPC endpoint. Any other value is returned unchanged.
func ParseEnvironment(s string) Environment {
	switch s {
	case "devnet":
		return EnvironmentDev
	case "testnet":
		return EnvironmentTest
	case "mainnet", "mainnet-beta":
		return EnvironmentProd
	}
	return Environment(s)
}
