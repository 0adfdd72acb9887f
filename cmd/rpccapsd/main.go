// Command rpccapsd is the demo binary wiring the capability-RPC substrate
// together end to end: a root signer issues a Reference, a dispatch table
// routes incoming framed id frames to a derived auth service that hands
// out narrowed sub-references, all served over an ephemeral-TLS QUIC
// listener.
package main

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"os"

	"github.com/bkfox/rpccaps-go/capability"
	"github.com/bkfox/rpccaps-go/codec"
	"github.com/bkfox/rpccaps-go/config"
	"github.com/bkfox/rpccaps-go/dispatch"
	"github.com/bkfox/rpccaps-go/reference"
	"github.com/bkfox/rpccaps-go/rpcsvc"
	"github.com/bkfox/rpccaps-go/sig"
	"github.com/bkfox/rpccaps-go/transport"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	rootSigner, err := loadOrGenerateRootSigner(cfg)
	if err != nil {
		slog.Error("failed to initialize root signer", "err", err)
		os.Exit(1)
	}

	clientSigner, err := sig.Ed25519.Generate()
	if err != nil {
		slog.Error("failed to generate demo client key", "err", err)
		os.Exit(1)
	}

	root, err := reference.New(sig.Ed25519, reference.NewObjectID(), rootSigner, cfg.MaxShare, reference.Authorization{
		Capability: capability.New(^uint64(0), ^uint64(0)),
		Subject:    clientSigner.Public(),
	})
	if err != nil {
		slog.Error("failed to issue root reference", "err", err)
		os.Exit(1)
	}

	bearer := reference.NewBearerManager(cfg.BearerSecret, cfg.BearerTTL)
	if _, err := bearer.Issue(root); err != nil {
		slog.Error("failed to issue bearer token for root reference", "err", err)
		os.Exit(1)
	}

	authSvc := rpcsvc.Derive(rpcsvc.NewAuthService(sig.Ed25519, rootSigner, root))

	table := dispatch.New[string, struct{}](cfg.DispatchMaxCount)
	if err := table.Add("auth", serveAuth(authSvc), false); err != nil {
		slog.Error("failed to register auth service", "err", err)
		os.Exit(1)
	}

	tlsConf, err := transport.EphemeralServerTLSConfig("rpccapsd")
	if err != nil {
		slog.Error("failed to generate ephemeral TLS config", "err", err)
		os.Exit(1)
	}

	listener, err := transport.ListenQUIC(cfg.ListenAddr, tlsConf, nil)
	if err != nil {
		slog.Error("failed to listen", "err", err)
		os.Exit(1)
	}
	defer listener.Close()

	slog.Info("rpccapsd listening", "addr", listener.Addr(), "max_share", cfg.MaxShare)

	idCodec := codec.MsgpackCodec[string]{}
	ctx := context.Background()
	for {
		stream, err := listener.Accept(ctx)
		if err != nil {
			slog.Error("accept failed", "err", err)
			continue
		}
		go func() {
			if err := dispatch.DispatchStream[string, struct{}](table, stream, idCodec, struct{}{}); err != nil {
				slog.Warn("dispatch stream ended", "err", err)
			}
		}()
	}
}

// serveAuth adapts a derived rpcsvc.Service into a dispatch.Handler: the
// connection handed to it has already had its id frame peeled off, so the
// remaining bytes are exactly a Request/Response framed conversation.
func serveAuth(svc rpcsvc.Service) dispatch.Handler[struct{}] {
	return func(_ struct{}, rest io.ReadWriteCloser) error {
		reqCodec := codec.MsgpackCodec[rpcsvc.Request]{}
		respCodec := codec.MsgpackCodec[rpcsvc.Response]{}
		in := codec.NewFramed[rpcsvc.Request](rest, rest, reqCodec)
		out := codec.NewFramed[rpcsvc.Response](rest, rest, respCodec)
		return svc.Serve(in, out)
	}
}

func loadOrGenerateRootSigner(cfg *config.Config) (sig.Signer, error) {
	if len(cfg.RootSecret) > 0 {
		return sig.Ed25519.FromSecret(cfg.RootSecret)
	}

	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	signer, err := sig.Ed25519.FromSecret(seed)
	if err != nil {
		return nil, err
	}
	slog.Warn("RPCCAPS_ROOT_SECRET not set, generated an ephemeral root signer for this run only")
	return signer, nil
}
