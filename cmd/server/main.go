package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"personagrid/pkg/api"
	"personagrid/pkg/command"
	"personagrid/pkg/db"
	"personagrid/pkg/llm"
	"personagrid/pkg/mail"
	"personagrid/pkg/model"
	"personagrid/pkg/store"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	storeType := flag.String("store", "mysql", "store backend: mysql|memory")
	cmdLogPath := flag.String("command-log", "data/commands.db", "sqlite file for the command decision log")
	draftTTL := flag.Duration("draft-ttl", command.DefaultDraftTTL, "server-side preview draft lifetime")
	flag.Parse()

	var st store.Store
	switch *storeType {
	case "mysql":
		gdb, err := db.Init()
		if err != nil {
			log.Fatalf("mysql init failed: %v", err)
		}
		st = store.NewGormStore(gdb)
	case "memory":
		st = store.NewMemoryStore()
	default:
		log.Fatalf("unsupported store type: %s", *storeType)
	}
	seedAdmin(st)

	ctx := context.Background()
	var client llm.Client
	if g, err := llm.NewGemini(ctx, ""); err != nil {
		// The memory store is the dev/demo mode; let it run without an API
		// key. Command endpoints answer 500 until one is configured.
		if *storeType != "memory" {
			log.Fatalf("llm init failed: %v", err)
		}
		log.Printf("llm disabled: %v", err)
	} else {
		client = g
	}

	cmdLog, err := command.OpenCommandLog(*cmdLogPath)
	if err != nil {
		log.Printf("command log disabled: %v", err)
	}
	defer cmdLog.Close()

	pipeline := &command.Pipeline{
		Store:  st,
		LLM:    client,
		Drafts: command.NewDraftCache(*draftTTL),
		Log:    cmdLog,
	}

	hub := api.NewWSHub()
	h := &api.Handler{Store: st, Pipeline: pipeline, Hub: hub, Mail: mailSender()}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("personagrid server listening on %s store=%s", *addr, *storeType)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// mailSender avoids handing the handler a typed nil when SMTP is not
// configured.
func mailSender() mail.Sender {
	if s := mail.FromEnv(); s != nil {
		return s
	}
	return nil
}

// seedAdmin creates the bootstrap super-admin from env on first start.
func seedAdmin(st store.Store) {
	email := os.Getenv("ADMIN_EMAIL")
	pass := os.Getenv("ADMIN_PASSWORD")
	if email == "" || pass == "" {
		return
	}
	if _, exists, _ := st.GetAdminByEmail(email); exists {
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if _, err := st.CreateAdmin(model.Admin{Email: email, PasswordHash: string(hash)}); err != nil {
		log.Printf("admin seed failed: %v", err)
		return
	}
	log.Printf("seeded admin account %s", email)
}
