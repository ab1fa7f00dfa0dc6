// SPDX-FileCopyrightText: (C) 2025 Intel Corporation
// SPDX-License-Identifier: Apache 2.0

package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qcryptocore/qc-server/internal/db"
	"github.com/qcryptocore/qc-server/internal/handshake"
	"github.com/qcryptocore/qc-server/internal/keyschedule"
	"github.com/qcryptocore/qc-server/internal/recordcodec"
)

var (
	dialAddr    string
	dialTimeout time.Duration
)

// dialCmd is the client-role counterpart to listenCmd: it drives
// internal/handshake.Connection through the client side of the handshake
// against a real listenCmd server (or any peer speaking the same demo
// transport), over a single UDP flow.
var dialCmd = &cobra.Command{
	Use:   "dial udp_address",
	Short: "Drive the client role of the handshake over UDP",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return dialCmdLoadConfig(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := getState()
		if err != nil {
			return err
		}
		return runDial(dialAddr, state)
	},
}

func init() {
	rootCmd.AddCommand(dialCmd)

	dialCmd.Flags().Duration("timeout", 10*time.Second, "Overall handshake timeout")
	dialCmd.Flags().String("config", "", "Pathname of the configuration file")
}

func dialCmdLoadConfig(cmd *cobra.Command, args []string) error {
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
		slog.Debug("Loading dial configuration file", "path", configFilePath)
		viper.SetConfigFile(configFilePath)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("configuration file read failed: %w", err)
		}
	}
	if err := rootCmdLoadConfig(); err != nil {
		return err
	}

	dialAddr = viper.GetString("address")
	if dialAddr == "" {
		return fmt.Errorf("the dial command requires the 'udp_address' argument")
	}
	dialTimeout = viper.GetDuration("timeout")
	return nil
}

// newClientCIDInitial picks the destination connection ID the demo client
// uses for a dial: a real client draws this randomly per spec.md §3's "the
// client's cid_initial is the dest_conn_id it chose for the peer".
func newClientCIDInitial() ([]byte, error) {
	cid := make([]byte, 8)
	if _, err := rand.Read(cid); err != nil {
		return nil, err
	}
	return cid, nil
}

func runDial(addr string, state *db.State) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	pconn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return err
	}
	defer pconn.Close()

	go func() {
		<-ctx.Done()
		pconn.Close()
	}()

	cidInitial, err := newClientCIDInitial()
	if err != nil {
		return err
	}
	hs, err := handshake.New(handshake.RoleClient, cidInitial, nil)
	if err != nil {
		return err
	}
	sess := newSession()
	connID := hex.EncodeToString(cidInitial)

	chFrame, err := hs.EmitClientHello(1, recordcodec.DefaultTransportParameters())
	if err != nil {
		return err
	}
	if err := sendClientFrame(sess, pconn, cidInitial, keyschedule.Initial, hs, chFrame); err != nil {
		return err
	}

	buf := make([]byte, 2048)
	for hs.Level != keyschedule.Protected {
		n, err := pconn.Read(buf)
		if err != nil {
			return fmt.Errorf("dial: read: %w", err)
		}
		if err := handleClientDatagram(state, connID, sess, pconn, hs, append([]byte(nil), buf[:n]...)); err != nil {
			return err
		}
	}
	slog.Info("handshake established", "remote", addr, "connection", connID)
	return nil
}

func sendClientFrame(sess *session, pconn *net.UDPConn, cidInitial []byte, level keyschedule.Level, hs *handshake.Connection, plaintext []byte) error {
	dk, err := directionalKeysFor(&hs.Schedule, level, directionSend(hs.Role))
	if err != nil {
		return err
	}
	pk, err := newPacketKeys(dk)
	if err != nil {
		return err
	}
	datagram, err := sess.seal(pk, level, cidInitial, plaintext)
	if err != nil {
		return err
	}
	_, err = pconn.Write(datagram)
	return err
}

func handleClientDatagram(state *db.State, connID string, sess *session, pconn *net.UDPConn, hs *handshake.Connection, datagram []byte) error {
	level, _, err := demoHeaderLevel(datagram)
	if err != nil {
		return err
	}

	dk, err := directionalKeysFor(&hs.Schedule, level, directionRecv(hs.Role))
	if err != nil {
		return err
	}
	pk, err := newPacketKeys(dk)
	if err != nil {
		return err
	}
	_, plaintext, err := sess.open(pk, level, datagram)
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

	result, verr := hs.ValidateRecord(level, frame)
	detail := ""
	if verr != nil {
		detail = verr.Error()
	}
	if err := state.RecordEvent(db.AuditEvent{
		ConnectionID: connID,
		Role:         "client",
		Level:        level.String(),
		RecordType:   rec.Type.String(),
		Result:       result.String(),
		Detail:       detail,
	}); err != nil {
		slog.Warn("failed to persist audit event", "err", err)
	}

	if result == handshake.ResultInvalid {
		return verr
	}

	// The server's Finished is the last Handshake-level record this side
	// validates; answer with the client's own Finished (still keyed and
	// transcript-bound at Handshake level) before advancing to Protected.
	if rec.Type == recordcodec.Finished {
		finFrame, err := hs.EmitFinished()
		if err != nil {
			return err
		}
		if err := sendClientFrame(sess, pconn, hs.CIDInitial, keyschedule.Handshake, hs, finFrame); err != nil {
			return err
		}
	}
	return hs.AdvanceKeys()
}
