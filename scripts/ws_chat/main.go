package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gookit/color"

	"github.com/vovakirdan/chatrelay/internal/proto"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "", "username to set after connecting")
	room := flag.String("room", "general", "room to join, empty for none")
	token := flag.String("token", "", "connection token when authentication is enabled")
	flag.Parse()

	target, err := url.Parse(*addr)
	if err != nil {
		return fmt.Errorf("parse addr: %w", err)
	}
	if *token != "" {
		q := target.Query()
		q.Set("token", *token)
		target.RawQuery = q.Encode()
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, target.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	c := &client{conn: conn}
	if *user != "" {
		c.send(ctx, proto.TypeSetUsername, map[string]string{"username": *user})
	}
	if *room != "" {
		c.send(ctx, proto.TypeRoomJoin, map[string]string{"room": *room})
	}

	color.Info.Printf("Connected to %s\n", *addr)
	fmt.Println("Type to chat. Commands: /nick NAME, /join ROOM, /leave, /msg ID TEXT, /all TEXT, /users, /members ROOM")

	go func() {
		defer cancel()
		c.readLoop(ctx)
	}()

	c.writeLoop(ctx)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

type client struct {
	conn *websocket.Conn
}

func (c *client) send(ctx context.Context, msgType string, payload any) {
	if err := wsjson.Write(ctx, c.conn, map[string]any{"type": msgType, "payload": payload}); err != nil {
		log.Printf("send: %v", err)
	}
}

func (c *client) readLoop(ctx context.Context) {
	for {
		var env envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}
		c.render(env)
	}
}

func (c *client) render(env envelope) {
	switch env.Type {
	case proto.TypeUserJoined, proto.TypeUserLeft:
		var p proto.PresencePayload
		if decode(env, &p) {
			verb := "joined"
			if env.Type == proto.TypeUserLeft {
				verb = "left"
			}
			color.Gray.Printf("* %s (#%d) %s\n", p.Username, p.ID, verb)
		}
	case proto.TypeChat:
		var p proto.ChatPayload
		if decode(env, &p) {
			fmt.Printf("%s %s\n", color.Cyan.Sprintf("%s:", p.Username), p.Text)
		}
	case proto.TypeRoomChat:
		var p proto.RoomChatPayload
		if decode(env, &p) {
			fmt.Printf("%s %s %s\n", color.Magenta.Sprintf("[%s]", p.Room), color.Cyan.Sprintf("%s:", p.Username), p.Text)
		}
	case proto.TypePrivateChat:
		var p proto.PrivateChatPayload
		if decode(env, &p) {
			fmt.Printf("%s %s\n", color.Yellow.Sprintf("(private #%d -> #%d) %s:", p.From, p.To, p.Username), p.Text)
		}
	case proto.TypeUsernameChanged:
		var p proto.UsernameChangedPayload
		if decode(env, &p) {
			color.Gray.Printf("* %s is now %s\n", p.Previous, p.Username)
		}
	case proto.TypeRoomNotification:
		var p proto.RoomNotificationPayload
		if decode(env, &p) {
			color.Gray.Printf("[%s] %s\n", p.Room, p.Message)
		}
	case proto.TypeUserList:
		var p proto.UserListPayload
		if decode(env, &p) {
			printUsers("online", p.Users)
		}
	case proto.TypeRoomMembers:
		var p proto.RoomMembersPayload
		if decode(env, &p) {
			printUsers("members of "+p.Room, p.Members)
		}
	case proto.TypeTypingStart, proto.TypeTypingStop:
	case proto.TypeError:
		var p proto.ErrorPayload
		if decode(env, &p) {
			color.Error.Println(p.Message)
		}
	default:
		fmt.Printf("%s %s\n", env.Type, env.Payload)
	}
}

func (c *client) writeLoop(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			c.dispatch(ctx, strings.TrimSpace(line))
		}
	}
}

func (c *client) dispatch(ctx context.Context, line string) {
	if line == "" {
		return
	}
	// Plain lines go to the current room; /all reaches everyone.
	if !strings.HasPrefix(line, "/") {
		c.send(ctx, proto.TypeRoomChat, map[string]string{"text": line})
		return
	}

	cmd, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "nick":
		c.send(ctx, proto.TypeSetUsername, map[string]string{"username": rest})
	case "join":
		c.send(ctx, proto.TypeRoomJoin, map[string]string{"room": rest})
	case "leave":
		c.send(ctx, proto.TypeRoomLeave, map[string]string{})
	case "all":
		c.send(ctx, proto.TypeChat, map[string]string{"text": rest})
	case "users":
		c.send(ctx, proto.TypeGetUsers, map[string]string{})
	case "members":
		c.send(ctx, proto.TypeRoomMembers, map[string]string{"room": rest})
	case "msg":
		idText, text, _ := strings.Cut(rest, " ")
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil {
			color.Error.Println("usage: /msg ID TEXT")
			return
		}
		c.send(ctx, proto.TypePrivateChat, map[string]any{"to": id, "text": text})
	default:
		color.Error.Printf("unknown command /%s\n", cmd)
	}
}

func decode(env envelope, out any) bool {
	if err := json.Unmarshal(env.Payload, out); err != nil {
		log.Printf("decode %s: %v", env.Type, err)
		return false
	}
	return true
}

func printUsers(title string, users []proto.UserInfo) {
	color.Info.Printf("%s:\n", title)
	for _, u := range users {
		fmt.Printf("  #%d %s\n", u.ID, u.Username)
	}
}
