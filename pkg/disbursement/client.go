package disbursement

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/stake-disburser/pkg/rate"
	"github.com/code-payments/stake-disburser/pkg/solana"
)

const rpcRequestTimeout = 30 * time.Second

// NewSolanaClient builds the RPC client a disbursement runs against from the
// configured endpoint and request pacing.
func NewSolanaClient(configProvider ConfigProvider) (solana.Client, error) {
	ctx := context.Background()
	conf := configProvider()

	endpoint, err := parseRpcEndpoint(conf.rpcUrl.Get(ctx))
	if err != nil {
		return nil, err
	}

	requestsPerSecond, err := conf.rpcRequestsPerSecond.GetSafe(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s: %s", RpcRequestsPerSecondConfigEnvName, err)
	}
	if requestsPerSecond < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s must not be negative", RpcRequestsPerSecondConfigEnvName)
	}

	var limiter rate.Limiter = &rate.NoLimiter{}
	if requestsPerSecond > 0 {
		limiter = rate.NewLocalRateLimiter(xrate.Limit(requestsPerSecond))
	}

	opts := &jsonrpc.RPCClientOpts{
		HTTPClient: &http.Client{Timeout: rpcRequestTimeout},
	}
	return solana.NewWithRPCOptions(endpoint, opts, limiter), nil
}

func parseRpcEndpoint(value string) (string, error) {
	if len(value) == 0 {
		return "", errors.Wrapf(ErrInvalidConfig, "%s is required", RpcUrlConfigEnvName)
	}

	endpoint := string(solana.ParseEnvironment(value))

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidConfig, "%s: %s", RpcUrlConfigEnvName, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || len(u.Host) == 0 {
		return "", errors.Wrapf(ErrInvalidConfig, "%s must be an http(s) url", RpcUrlConfigEnvName)
	}

	return endpoint, nil
}
