// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qcryptocore/qc-server/api"
	"github.com/qcryptocore/qc-server/internal/db"
	"github.com/qcryptocore/qc-server/internal/handshake"
	"github.com/qcryptocore/qc-server/internal/keyschedule"
	"github.com/qcryptocore/qc-server/internal/recordcodec"
)

var (
	listenAddr           string
	listenServerCertPath string
	listenServerKeyPath  string
	listenRatePerSecond  float64
	listenBurst          int
	sessionIdleTimeout   time.Duration
	listenHTTPAddr       string
)

// listenCmd is the server-role demo: a UDP-shaped loop that drives
// internal/handshake.Connection through the server side of the handshake
// for every distinct remote address it hears an Initial-level ClientHello
// from (spec.md §1 names exactly this — "the connection state machine
// driving the endpoint" and "raw UDP I/O" — as the external collaborator
// the core leaves unspecified).
var listenCmd = &cobra.Command{
	Use:   "listen udp_address",
	Short: "Serve the server role of the handshake over UDP",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return listenCmdLoadConfig(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := getState()
		if err != nil {
			return err
		}
		cert, key, err := loadOrGenerateServerIdentity(listenServerCertPath, listenServerKeyPath)
		if err != nil {
			return err
		}
		return runListen(listenAddr, state, cert, key)
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().String("server-cert", "", "Path to PEM-encoded server certificate (self-signed if omitted)")
	listenCmd.Flags().String("server-key", "", "Path to PEM-encoded (PKCS8/SEC1/PKCS1) server private key")
	listenCmd.Flags().Float64("rate", 20, "Per-source-address token-bucket rate (datagrams/sec)")
	listenCmd.Flags().Int("burst", 40, "Per-source-address token-bucket burst")
	listenCmd.Flags().Duration("idle-timeout", 30*time.Second, "Idle session reap timeout")
	listenCmd.Flags().String("http-addr", "", "Diagnostic HTTP listen address (disabled if empty)")
	listenCmd.Flags().String("config", "", "Pathname of the configuration file")
}

func listenCmdLoadConfig(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if len(args) > 0 {
		viper.Set("address", args[0])
	}
	configFilePath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	if configFilePath != "" {
		slog.Debug("Loading listen configuration file", "path", configFilePath)
		viper.SetConfigFile(configFilePath)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("configuration file read failed: %w", err)
		}
	}
	if err := rootCmdLoadConfig(); err != nil {
		return err
	}

	listenAddr = viper.GetString("address")
	if listenAddr == "" {
		return fmt.Errorf("the listen command requires the 'udp_address' argument")
	}
	listenServerCertPath = viper.GetString("server-cert")
	listenServerKeyPath = viper.GetString("server-key")
	listenRatePerSecond = viper.GetFloat64("rate")
	listenBurst = viper.GetInt("burst")
	sessionIdleTimeout = viper.GetDuration("idle-timeout")
	listenHTTPAddr = viper.GetString("http-addr")
	if listenHTTPAddr == "" {
		var httpCfg HTTPConfig
		if err := viper.UnmarshalKey("http", &httpCfg); err == nil && httpCfg.Port != "" {
			listenHTTPAddr = httpCfg.ListenAddress()
		}
	}
	return nil
}

// loadOrGenerateServerIdentity loads a PEM cert/key pair from disk, or
// mints an ephemeral self-signed secp256r1 identity when no paths are
// given -- adequate for the demo listener, since spec.md's Non-goals
// exclude any PKI/trust-store beyond per-connection leaf verification.
func loadOrGenerateServerIdentity(certPath, keyPath string) (*x509.Certificate, crypto.Signer, error) {
	if certPath == "" || keyPath == "" {
		return generateSelfSignedIdentity()
	}
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, err
	}
	blk, _ := pem.Decode(certPEM)
	if blk == nil {
		return nil, nil, fmt.Errorf("unable to decode server certificate %s", certPath)
	}
	cert, err := x509.ParseCertificate(blk.Bytes)
	if err != nil {
		return nil, nil, err
	}
	key, err := parsePrivateKey(keyPath)
	if err != nil {
		return nil, nil, err
	}
	return cert, key, nil
}

func generateSelfSignedIdentity() (*x509.Certificate, crypto.Signer, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: "qc-server-demo"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, err
	}
	return cert, priv, nil
}

// serverConn bundles one remote address's handshake state with the demo
// packet-number bookkeeping. hs and sess are only touched by acceptLoop,
// which handles each datagram inline; lastSeen and the conns map are
// guarded by runListen's mutex, which reapIdleSessions also takes.
type serverConn struct {
	hs       *handshake.Connection
	sess     *session
	lastSeen time.Time
}

func runListen(addr string, state *db.State, cert *x509.Certificate, key crypto.Signer) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	pconn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	slog.Info("Listening", "local", pconn.LocalAddr().String())

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)
	conns := make(map[string]*serverConn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return pconn.Close()
	})
	g.Go(func() error {
		return reapIdleSessions(gctx, &mu, conns, sessionIdleTimeout)
	})
	g.Go(func() error {
		return acceptLoop(gctx, pconn, state, cert, key, &mu, limiters, conns)
	})
	if listenHTTPAddr != "" {
		g.Go(func() error {
			return serveDiagnosticHTTP(gctx, listenHTTPAddr, state)
		})
	}
	return g.Wait()
}

// serveDiagnosticHTTP runs api.Router's read-only JSON endpoints until ctx
// is cancelled, shutting the server down gracefully rather than leaking
// its listener when the errgroup tears the rest of runListen down.
func serveDiagnosticHTTP(ctx context.Context, addr string, state *db.State) error {
	srv := &http.Server{Addr: addr, Handler: api.Router(state)}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func reapIdleSessions(ctx context.Context, mu *sync.Mutex, conns map[string]*serverConn, idle time.Duration) error {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			mu.Lock()
			for addr, c := range conns {
				if now.Sub(c.lastSeen) > idle {
					delete(conns, addr)
					slog.Debug("reaped idle session", "remote", addr)
				}
			}
			mu.Unlock()
		}
	}
}

func acceptLoop(ctx context.Context, pconn *net.UDPConn, state *db.State, cert *x509.Certificate, key crypto.Signer, mu *sync.Mutex, limiters map[string]*rate.Limiter, conns map[string]*serverConn) error {
	buf := make([]byte, 2048)
	for {
		n, raddr, err := pconn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		addrKey := raddr.String()

		mu.Lock()
		limiter, ok := limiters[addrKey]
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(listenRatePerSecond), listenBurst)
			limiters[addrKey] = limiter
		}
		if !limiter.Allow() {
			mu.Unlock()
			slog.Warn("dropping datagram: rate limit exceeded", "remote", addrKey)
			continue
		}
		sc, ok := conns[addrKey]
		if !ok {
			sc = &serverConn{sess: newSession()}
			conns[addrKey] = sc
		}
		sc.lastSeen = time.Now()
		mu.Unlock()

		data := append([]byte(nil), buf[:n]...)
		if err := handleServerDatagram(state, cert, key, pconn, raddr, sc, data); err != nil {
			slog.Warn("dropping datagram", "remote", addrKey, "err", err)
		}
	}
}

func handleServerDatagram(state *db.State, cert *x509.Certificate, key crypto.Signer, pconn *net.UDPConn, raddr *net.UDPAddr, sc *serverConn, datagram []byte) error {
	level, cidInitial, err := demoHeaderLevel(datagram)
	if err != nil {
		return err
	}

	if sc.hs == nil {
		if level != keyschedule.Initial {
			return fmt.Errorf("no session yet and datagram is not Initial level")
		}
		hs, err := handshake.New(handshake.RoleServer, cidInitial, nil)
		if err != nil {
			return err
		}
		hs.CertChain = []*x509.Certificate{cert}
		hs.LeafCert = cert
		hs.CertPrivKey = key
		sc.hs = hs
	}

	dk, err := directionalKeysFor(&sc.hs.Schedule, level, directionRecv(sc.hs.Role))
	if err != nil {
		return err
	}
	pk, err := newPacketKeys(dk)
	if err != nil {
		return err
	}
	_, plaintext, err := sc.sess.open(pk, level, datagram)
	if err != nil {
		return fmt.Errorf("open_packet: %w", err)
	}

	frame, rest, err := recordcodec.ParseCryptoFrame(plaintext)
	if err != nil || len(rest) != 0 {
		return fmt.Errorf("malformed CRYPTO frame")
	}
	rec, _, err := recordcodec.ParseRecord(frame.Data)
	if err != nil {
		return fmt.Errorf("malformed handshake record: %w", err)
	}

	result, verr := sc.hs.ValidateRecord(level, frame)
	connID := hex.EncodeToString(cidInitial)
	detail := ""
	if verr != nil {
		detail = verr.Error()
	}
	if err := state.RecordEvent(db.AuditEvent{
		ConnectionID: connID,
		Role:         "server",
		Level:        level.String(),
		RecordType:   rec.Type.String(),
		Result:       result.String(),
		Detail:       detail,
	}); err != nil {
		slog.Warn("failed to persist audit event", "err", err)
	}

	if result != handshake.ResultValid {
		return nil
	}

	switch rec.Type {
	case recordcodec.ClientHello:
		return serverRespondToClientHello(sc, pconn, raddr, cidInitial)
	case recordcodec.Finished:
		slog.Info("handshake established", "remote", raddr.String(), "connection", connID)
	}
	return nil
}

func serverRespondToClientHello(sc *serverConn, pconn *net.UDPConn, raddr *net.UDPAddr, cidInitial []byte) error {
	hs := sc.hs
	shFrame, err := hs.EmitServerHello()
	if err != nil {
		return err
	}
	if err := sendServerFrame(sc, pconn, raddr, cidInitial, keyschedule.Initial, shFrame); err != nil {
		return err
	}
	if err := hs.AdvanceKeys(); err != nil {
		return err
	}

	for _, frame := range []func() ([]byte, error){hs.EmitEncryptedExtensions, hs.EmitCertificate, hs.EmitCertificateVerify, hs.EmitFinished} {
		b, err := frame()
		if err != nil {
			return err
		}
		if err := sendServerFrame(sc, pconn, raddr, cidInitial, keyschedule.Handshake, b); err != nil {
			return err
		}
	}
	return hs.AdvanceKeys()
}

func sendServerFrame(sc *serverConn, pconn *net.UDPConn, raddr *net.UDPAddr, cidInitial []byte, level keyschedule.Level, plaintext []byte) error {
	dk, err := directionalKeysFor(&sc.hs.Schedule, level, directionSend(sc.hs.Role))
	if err != nil {
		return err
	}
	pk, err := newPacketKeys(dk)
	if err != nil {
		return err
	}
	datagram, err := sc.sess.seal(pk, level, cidInitial, plaintext)
	if err != nil {
		return err
	}
	_, err = pconn.WriteToUDP(datagram, raddr)
	return err
}
