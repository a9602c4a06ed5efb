// Command vg is a CLI client for the VidGraph service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	grpcserver "github.com/and161185/vidgraph/internal/server/grpc"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "vidgraph")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "vidgraph")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(tokenFile{AccessToken: tok, ExpiresAt: exp}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tokenPath(), append(b, '\n'), 0o600)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

type transport struct {
	caPath    string
	skipVerif bool
	plaintext bool
}

func (t transport) creds() (credentials.TransportCredentials, error) {
	if t.plaintext {
		return insecure.NewCredentials(), nil
	}
	if t.skipVerif {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	}
	if t.caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(t.caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

func dial(addr string, t transport, bearer string) (*grpc.ClientConn, *grpcserver.Client, error) {
	creds, err := t.creds()
	if err != nil {
		return nil, nil, err
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer, secure: !t.plaintext}))
	}
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cc, grpcserver.NewClient(cc), nil
}

// ---- utils ----

func readArg(v string) (string, error) {
	if v != "-" {
		return v, nil
	}
	b, err := io.ReadAll(os.Stdin)
	return strings.TrimSpace(string(b)), err
}

var printOpts = protojson.MarshalOptions{Multiline: true, Indent: "  "}

func printStruct(w io.Writer, s *structpb.Struct) error {
	b, err := printOpts.Marshal(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func usage() {
	fmt.Fprintf(os.Stderr, `vg CLI
Usage:
  vg -addr HOST:PORT [-cacert file | -insecure | -plaintext] <cmd> [args]

Commands:
  version
  sign       -bot-token <token> [-user <json>] [-auth-date <unix>]   (dev: print a signed initData)
  login      -init <initData|-> [-bot <name>]                        (saves token)
  me
  follow     -user <id>
  unfollow   -user <id>
  status     -user <id>
  following  [-user <id>] [-page n] [-size n]
  followers  [-user <id>] [-page n] [-size n]
  friends    [-page n] [-size n]
  search     -q <keyword> [-page n] [-size n]
  stats      -user <id>
  inbox      [-page n] [-size n]
  thread     -user <id> [-page n] [-size n]
  send       -user <id> -text <content|-> [-type text]
  notes      [-type like|comment|follow|mention|system] [-page n] [-size n]
  unread
  read       -id <notification id>
  readall    [-type <type>]
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	// global flags
	addr := flag.String("addr", "localhost:8443", "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	skip := flag.Bool("insecure", false, "skip cert verify (dev)")
	plaintext := flag.Bool("plaintext", false, "no TLS (dev server)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	name, args := flag.Arg(0), flag.Args()[1:]
	tr := transport{caPath: *caPath, skipVerif: *skip, plaintext: *plaintext}

	switch name {
	case "version":
		fmt.Printf("vg %s (%s)\n", version, buildDate)
		return
	case "sign":
		out, err := runSign(args, time.Now())
		if err != nil {
			fail(err)
		}
		fmt.Println(out)
		return
	}

	cmd, ok := commands[name]
	if !ok {
		usage()
	}
	req, err := cmd.build(args)
	if err != nil {
		fail(err)
	}

	var token string
	if cmd.auth {
		if token, err = loadToken(); err != nil {
			fail(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, cli, err := dial(*addr, tr, token)
	if err != nil {
		fail(err)
	}
	defer conn.Close()

	out, err := cli.Call(ctx, cmd.method, req)
	if err != nil {
		fail(err)
	}
	if cmd.method == grpcserver.MethodLogin {
		if err := storeLogin(out); err != nil {
			fail(err)
		}
	}
	if err := printStruct(os.Stdout, out); err != nil {
		fail(err)
	}
}

// storeLogin saves the access token from a Login response.
func storeLogin(out *structpb.Struct) error {
	f := out.GetFields()
	tok := f["accessToken"].GetStringValue()
	if tok == "" {
		return errors.New("login response carries no token")
	}
	exp, err := time.Parse(time.RFC3339Nano, f["expiresAt"].GetStringValue())
	if err != nil {
		return fmt.Errorf("login response expiresAt: %w", err)
	}
	return saveToken(tok, exp)
}

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
