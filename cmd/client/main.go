package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/atinyakov/GophContacts/internal/client"
)

var (
	version   string
	buildDate string
)

const helpText = `Available commands:
  signup <email>          register a new account
  confirm <token>         confirm the email address
  resend <email>          send the verification mail again
  login <email>           log in and store the session
  logout                  forget the session
  me                      show the logged-in user
  avatar <path>           upload an avatar image
  list [limit] [offset]   list contacts
  get <id>                show a contact
  add                     create a contact
  edit <id>               update a contact
  delete <id>             delete a contact
  search <query>          search by name, surname or email
  birthdays [days]        upcoming birthdays
  help, exit`

// repl runs the interactive shell loop, accepting commands to manage contacts.
func repl(ctx context.Context, api *client.API, p *client.Prompter) {
	client.StartAutoRefresh(ctx, api, client.DefaultRefreshInterval, os.Stdout)

	for {
		line, ok := p.Line("contacts> ")
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Println("Bye")
			return
		}
		if err := dispatch(ctx, api, p, args); err != nil {
			fmt.Println("Error:", err)
		}
	}
}

func dispatch(ctx context.Context, api *client.API, p *client.Prompter, args []string) error {
	switch args[0] {
	case "help":
		fmt.Println(helpText)
	case "signup":
		if len(args) < 2 {
			return errors.New("usage: signup <email>")
		}
		password, _ := p.Ask("Password", "")
		msg, err := api.Signup(ctx, args[1], password)
		if err != nil {
			return err
		}
		fmt.Println(msg)
	case "confirm":
		if len(args) < 2 {
			return errors.New("usage: confirm <token>")
		}
		msg, err := api.Confirm(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Println(msg)
	case "resend":
		if len(args) < 2 {
			return errors.New("usage: resend <email>")
		}
		msg, err := api.RequestEmail(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Println(msg)
	case "login":
		if len(args) < 2 {
			return errors.New("usage: login <email>")
		}
		password, _ := p.Ask("Password", "")
		if err := api.Login(ctx, args[1], password); err != nil {
			return err
		}
		fmt.Println("Logged in as", args[1])
	case "logout":
		if err := api.Session.Clear(); err != nil {
			return err
		}
		fmt.Println("Logged out")
	case "me":
		u, err := api.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("#%d %s confirmed=%t", u.ID, u.Email, u.Confirmed)
		if u.AvatarURL != nil {
			fmt.Printf(" avatar=%s", *u.AvatarURL)
		}
		fmt.Println()
	case "avatar":
		if len(args) < 2 {
			return errors.New("usage: avatar <path>")
		}
		u, err := api.UploadAvatar(ctx, args[1])
		if err != nil {
			return err
		}
		if u.AvatarURL != nil {
			fmt.Println("Avatar updated:", *u.AvatarURL)
		}
	case "list":
		limit, offset, err := optionalInts(args[1:])
		if err != nil {
			return err
		}
		contacts, err := api.ListContacts(ctx, limit, offset)
		if err != nil {
			return err
		}
		client.PrintContacts(os.Stdout, contacts)
	case "get":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		c, err := api.GetContact(ctx, id)
		if err != nil {
			return err
		}
		client.PrintContact(os.Stdout, *c)
	case "add":
		payload, ok := p.PromptForContact(nil)
		if !ok {
			return errors.New("input closed")
		}
		c, err := api.CreateContact(ctx, payload)
		if err != nil {
			return err
		}
		client.PrintContact(os.Stdout, *c)
	case "edit":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		current, err := api.GetContact(ctx, id)
		if err != nil {
			return err
		}
		payload, ok := p.PromptForContact(current)
		if !ok {
			return errors.New("input closed")
		}
		c, err := api.UpdateContact(ctx, id, payload)
		if err != nil {
			return err
		}
		client.PrintContact(os.Stdout, *c)
	case "delete":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		if err := api.DeleteContact(ctx, id); err != nil {
			return err
		}
		fmt.Println("Contact deleted")
	case "search":
		if len(args) < 2 {
			return errors.New("usage: search <query>")
		}
		contacts, err := api.SearchContacts(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		client.PrintContacts(os.Stdout, contacts)
	case "birthdays":
		days, _, err := optionalInts(args[1:])
		if err != nil {
			return err
		}
		contacts, err := api.Birthdays(ctx, days)
		if err != nil {
			return err
		}
		client.PrintContacts(os.Stdout, contacts)
	default:
		fmt.Println("Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func idArg(args []string) (int64, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("usage: %s <id>", args[0])
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[1])
	}
	return id, nil
}

func optionalInts(args []string) (first, second int, err error) {
	vals := []*int{&first, &second}
	for i, a := range args {
		if i >= len(vals) {
			break
		}
		if *vals[i], err = strconv.Atoi(a); err != nil {
			return 0, 0, fmt.Errorf("invalid number %q", a)
		}
	}
	return first, second, nil
}

// main parses command-line flags and starts the shell.
func main() {
	var (
		baseURL     string
		caFile      string
		sessionFile string
		showVer     bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&caFile, "ca", "", "path to an extra CA cert to trust (self-signed dev server)")
	flag.StringVar(&sessionFile, "session", client.DefaultSessionFile, "path to the session file")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Contacts Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	httpClient, err := client.NewHTTPClient(caFile)
	if err != nil {
		log.Fatal(err)
	}
	session := client.NewSession(sessionFile)
	if err := session.Load(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repl(ctx, client.NewAPI(baseURL, httpClient, session), client.NewPrompter(os.Stdin, os.Stdout))
}
