// internal/core/whatsapp/whatsmeow.go
package whatsapp

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image/png"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq"
	qrcode "github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "github.com/glebarez/go-sqlite"
)

// WhatsmeowProvider drives a personal WhatsApp account over the multidevice
// socket. Interactive shapes (buttons, lists) are degraded to numbered plain
// text because the socket transport cannot render them.
type WhatsmeowProvider struct {
	client   *whatsmeow.Client
	storeURL string
}

func NewWhatsmeowProvider(storeURL string) *WhatsmeowProvider {
	return &WhatsmeowProvider{
		storeURL: storeURL,
	}
}

func (w *WhatsmeowProvider) GetProviderName() string {
	return "Whatsmeow"
}

func (w *WhatsmeowProvider) initStore() (*sqlstore.Container, error) {
	ctx := context.Background()
	dbLog := waLog.Stdout("Database", "ERROR", true)

	if w.storeURL != "" {
		log.Println("🌐 Using PostgreSQL database for WhatsApp store")
		container, err := sqlstore.New(ctx, "postgres", w.storeURL, dbLog)
		if err != nil {
			return nil, fmt.Errorf("failed to init PostgreSQL store: %w", err)
		}
		if err := container.Upgrade(ctx); err != nil {
			return nil, fmt.Errorf("failed to upgrade PostgreSQL schema: %w", err)
		}
		return container, nil
	}

	log.Println("💾 Using local SQLite store (store.db)")
	rawDB, err := sql.Open("sqlite", "file:store.db?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if _, err = rawDB.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	container := sqlstore.NewWithDB(rawDB, "sqlite3", dbLog)
	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("failed to upgrade sqlite schema: %w", err)
	}
	return container, nil
}

func (w *WhatsmeowProvider) Connect() error {
	container, err := w.initStore()
	if err != nil {
		return fmt.Errorf("failed to init store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get device: %w", err)
	}

	w.client = whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "INFO", true))

	if w.client.Store.ID == nil {
		// Not paired yet, print the QR code to the terminal
		qrChan, _ := w.client.GetQRChannel(context.Background())
		if err := w.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		for evt := range qrChan {
			switch evt.Event {
			case "code":
				log.Println("📱 Scan this QR code with WhatsApp:")
				qr, qerr := qrcode.New(evt.Code, qrcode.Medium)
				if qerr == nil {
					log.Println("\n" + qr.ToSmallString(false))
				}
			case "success":
				log.Println("✅ WhatsApp paired successfully")
				return nil
			case "timeout", "error":
				return fmt.Errorf("QR pairing failed: %s", evt.Event)
			}
		}
		return nil
	}

	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	log.Println("✅ Whatsmeow connected")
	return nil
}

func (w *WhatsmeowProvider) Disconnect() {
	if w.client != nil {
		w.client.Disconnect()
		log.Println("🔌 Whatsmeow client disconnected")
	}
}

func (w *WhatsmeowProvider) IsConnected() bool {
	return w.client != nil && w.client.IsConnected()
}

func (w *WhatsmeowProvider) SendText(phoneNumber, body string) error {
	if w.client == nil {
		return fmt.Errorf("client not initialized")
	}

	jid := types.NewJID(phoneNumber, "s.whatsapp.net")
	msg := &waProto.Message{
		Conversation: proto.String(body),
	}

	_, err := w.client.SendMessage(context.Background(), jid, msg)
	return err
}

// SendButtons degrades to numbered text. The reply code is printed so the
// user can type it back and the dialogue engine still matches the option.
func (w *WhatsmeowProvider) SendButtons(phoneNumber, body string, buttons []Button) error {
	if len(buttons) > MaxButtons {
		buttons = buttons[:MaxButtons]
	}
	var sb strings.Builder
	sb.WriteString(body)
	if len(buttons) > 0 {
		sb.WriteString("\n")
		for i, b := range buttons {
			sb.WriteString(fmt.Sprintf("\n%d. %s (reply: %s)", i+1, b.Title, b.ID))
		}
	}
	return w.SendText(phoneNumber, sb.String())
}

// SendList degrades to numbered text, same convention as SendButtons.
func (w *WhatsmeowProvider) SendList(phoneNumber, header, body, footer, buttonText string, sections []Section) error {
	var sb strings.Builder
	if header != "" {
		sb.WriteString("*" + header + "*\n\n")
	}
	sb.WriteString(body)
	n := 0
	for _, s := range sections {
		if s.Title != "" {
			sb.WriteString("\n\n*" + s.Title + "*")
		}
		for _, r := range s.Rows {
			if n >= MaxListRows {
				break
			}
			n++
			sb.WriteString(fmt.Sprintf("\n%d. %s (reply: %s)", n, r.Title, r.ID))
			if r.Description != "" {
				sb.WriteString("\n   " + r.Description)
			}
		}
	}
	if footer != "" {
		sb.WriteString("\n\n_" + footer + "_")
	}
	return w.SendText(phoneNumber, sb.String())
}

// SendImage degrades to caption plus URL. Uploading media over the socket
// would require fetching the image first, which the bot transport skips.
func (w *WhatsmeowProvider) SendImage(phoneNumber, imageURL, caption string) error {
	body := truncate(caption, MaxCaptionLen)
	if imageURL != "" {
		body = body + "\n\n" + imageURL
	}
	return w.SendText(phoneNumber, body)
}

// MarkRead is a no-op: read receipts need the chat JID, which the gateway
// surface does not carry.
func (w *WhatsmeowProvider) MarkRead(messageID string) error {
	return nil
}

func (w *WhatsmeowProvider) StartListening(handler func(msg *Inbound)) error {
	if w.client == nil {
		return fmt.Errorf("client not initialized")
	}

	w.client.AddEventHandler(func(evt interface{}) {
		m, ok := evt.(*events.Message)
		if !ok || m.Info.IsFromMe {
			return
		}

		text := m.Message.GetConversation()
		if text == "" {
			text = m.Message.GetExtendedTextMessage().GetText()
		}
		if text == "" {
			return
		}

		handler(&Inbound{
			ID:          m.Info.ID,
			From:        m.Info.Sender.User,
			ProfileName: m.Info.PushName,
			Type:        "text",
			Text:        text,
		})
	})
	return nil
}

func (w *WhatsmeowProvider) GenerateQR() ([]byte, error) {
	container, err := w.initStore()
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "INFO", true))
	qrChan, _ := client.GetQRChannel(context.Background())

	go func() {
		_ = client.Connect()
	}()

	for evt := range qrChan {
		if evt.Event == "code" {
			var buf bytes.Buffer
			img, err := qrcode.New(evt.Code, qrcode.Medium)
			if err != nil {
				client.Disconnect()
				return nil, fmt.Errorf("failed to generate QR: %w", err)
			}

			if err := png.Encode(&buf, img.Image(256)); err != nil {
				client.Disconnect()
				return nil, fmt.Errorf("failed to encode QR png: %w", err)
			}

			go func(cli *whatsmeow.Client) {
				time.Sleep(5 * time.Minute)
				cli.Disconnect()
			}(client)

			return buf.Bytes(), nil
		} else if evt.Event == "timeout" || evt.Event == "error" {
			client.Disconnect()
			return nil, fmt.Errorf("QR generation failed: %s", evt.Event)
		}
	}

	return nil, fmt.Errorf("no QR generated")
}
