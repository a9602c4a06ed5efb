package main

import (
	"errors"
	"flag"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/vidgraph/internal/crypto"
	grpcserver "github.com/and161185/vidgraph/internal/server/grpc"
)

// command maps CLI arguments to one RPC.
type command struct {
	method string
	auth   bool
	build  func(args []string) (*structpb.Struct, error)
}

var commands = map[string]command{
	"login":     {grpcserver.MethodLogin, false, buildLogin},
	"me":        {grpcserver.MethodMe, true, noArgs("me")},
	"follow":    {grpcserver.MethodFollow, true, userOnly("follow")},
	"unfollow":  {grpcserver.MethodUnfollow, true, userOnly("unfollow")},
	"status":    {grpcserver.MethodFollowStatus, true, userOnly("status")},
	"following": {grpcserver.MethodListFollowing, true, pagedUser("following", false)},
	"followers": {grpcserver.MethodListFollowers, true, pagedUser("followers", false)},
	"friends":   {grpcserver.MethodListFriends, true, paged("friends")},
	"search":    {grpcserver.MethodSearchUsers, false, buildSearch},
	"stats":     {grpcserver.MethodUserStats, false, userOnly("stats")},
	"inbox":     {grpcserver.MethodListConversations, true, paged("inbox")},
	"thread":    {grpcserver.MethodListMessages, true, pagedUser("thread", true)},
	"send":      {grpcserver.MethodSendMessage, true, buildSend},
	"notes":     {grpcserver.MethodListNotifications, true, buildNotes},
	"unread":    {grpcserver.MethodUnreadCount, true, noArgs("unread")},
	"read":      {grpcserver.MethodMarkNotificationRead, true, buildRead},
	"readall":   {grpcserver.MethodMarkAllNotifications, true, buildReadAll},
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func userFlag(fs *flag.FlagSet) *int64 { return fs.Int64("user", 0, "user id") }

func pageFlags(fs *flag.FlagSet) (*int, *int) {
	return fs.Int("page", 1, "page number"), fs.Int("size", 20, "page size")
}

func requireUser(id int64) error {
	if id <= 0 {
		return errors.New("need -user <id>")
	}
	return nil
}

func noArgs(name string) func([]string) (*structpb.Struct, error) {
	return func(args []string) (*structpb.Struct, error) {
		if err := newFlags(name).Parse(args); err != nil {
			return nil, err
		}
		return &structpb.Struct{}, nil
	}
}

func userOnly(name string) func([]string) (*structpb.Struct, error) {
	return func(args []string) (*structpb.Struct, error) {
		fs := newFlags(name)
		user := userFlag(fs)
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if err := requireUser(*user); err != nil {
			return nil, err
		}
		return structpb.NewStruct(map[string]any{"userId": strconv.FormatInt(*user, 10)})
	}
}

func paged(name string) func([]string) (*structpb.Struct, error) {
	return func(args []string) (*structpb.Struct, error) {
		fs := newFlags(name)
		page, size := pageFlags(fs)
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return structpb.NewStruct(map[string]any{"page": *page, "pageSize": *size})
	}
}

func pagedUser(name string, required bool) func([]string) (*structpb.Struct, error) {
	return func(args []string) (*structpb.Struct, error) {
		fs := newFlags(name)
		user := userFlag(fs)
		page, size := pageFlags(fs)
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		m := map[string]any{"page": *page, "pageSize": *size}
		switch {
		case *user > 0:
			m["userId"] = strconv.FormatInt(*user, 10)
		case required:
			return nil, requireUser(*user)
		}
		return structpb.NewStruct(m)
	}
}

func buildLogin(args []string) (*structpb.Struct, error) {
	fs := newFlags("login")
	initData := fs.String("init", "", "initData query string ('-'=stdin)")
	bot := fs.String("bot", "", "bot name (server default if empty)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	raw, err := readArg(*initData)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, errors.New("need -init")
	}
	m := map[string]any{"initData": raw}
	if *bot != "" {
		m["bot"] = *bot
	}
	return structpb.NewStruct(m)
}

func buildSearch(args []string) (*structpb.Struct, error) {
	fs := newFlags("search")
	q := fs.String("q", "", "keyword")
	page, size := pageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"keyword": *q, "page": *page, "pageSize": *size})
}

func buildSend(args []string) (*structpb.Struct, error) {
	fs := newFlags("send")
	user := userFlag(fs)
	text := fs.String("text", "", "message ('-'=stdin)")
	typ := fs.String("type", "", "message type (server default if empty)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := requireUser(*user); err != nil {
		return nil, err
	}
	content, err := readArg(*text)
	if err != nil {
		return nil, err
	}
	m := map[string]any{"userId": strconv.FormatInt(*user, 10), "content": content}
	if *typ != "" {
		m["messageType"] = *typ
	}
	return structpb.NewStruct(m)
}

func buildNotes(args []string) (*structpb.Struct, error) {
	fs := newFlags("notes")
	typ := fs.String("type", "", "like|comment|follow|mention|system (all if empty)")
	page, size := pageFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	m := map[string]any{"page": *page, "pageSize": *size}
	if *typ != "" {
		m["type"] = *typ
	}
	return structpb.NewStruct(m)
}

func buildRead(args []string) (*structpb.Struct, error) {
	fs := newFlags("read")
	id := fs.Int64("id", 0, "notification id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *id <= 0 {
		return nil, errors.New("need -id <notification id>")
	}
	return structpb.NewStruct(map[string]any{"id": strconv.FormatInt(*id, 10)})
}

func buildReadAll(args []string) (*structpb.Struct, error) {
	fs := newFlags("readall")
	typ := fs.String("type", "", "notification type (all if empty)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	m := map[string]any{}
	if *typ != "" {
		m["type"] = *typ
	}
	return structpb.NewStruct(m)
}

// runSign builds a signed initData locally, for use against dev servers.
func runSign(args []string, now time.Time) (string, error) {
	fs := newFlags("sign")
	botToken := fs.String("bot-token", "", "bot token used as the signing secret")
	user := fs.String("user", `{"id":42,"first_name":"Dev"}`, "user JSON")
	authDate := fs.Int64("auth-date", 0, "unix auth_date (now if 0)")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if strings.TrimSpace(*botToken) == "" {
		return "", errors.New("need -bot-token")
	}
	if *authDate == 0 {
		*authDate = now.Unix()
	}
	fields := url.Values{}
	fields.Set("user", *user)
	fields.Set("auth_date", strconv.FormatInt(*authDate, 10))
	return crypto.Sign(fields, []byte(*botToken)), nil
}
