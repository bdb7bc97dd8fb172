package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"atomkit/lib/chars"
	"atomkit/lib/fileio"
)

// Notice is a notification and its delivery receipt.
type Notice struct {
	ID        string   `json:"nid"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Files     []string `json:"files"`
	Urgency   int      `json:"urgency"`
	Sender    string   `json:"sender"`
	SenderID  string   `json:"sender_id"`
	Timestamp int64    `json:"timestamp"`
}

// NewNotice returns a notice with a random id stamped with the current time.
func NewNotice(sender, title, content string, files []string, urgency int) *Notice {
	if files == nil {
		files = []string{}
	}
	return &Notice{
		ID:        chars.MustRandomString(6, chars.Lower),
		Title:     title,
		Content:   content,
		Files:     files,
		Urgency:   urgency,
		Sender:    sender,
		Timestamp: time.Now().Unix(),
	}
}

// Success is true once the notice has an id and the sender has
// acknowledged it.
func (n *Notice) Success() bool {
	return n.ID != "" && n.SenderID != ""
}

func (n *Notice) Subject() string {
	return fmt.Sprintf("[NOTICE]<%d>%s", n.Urgency, n.Title)
}

func (n *Notice) Body() string {
	return fmt.Sprintf("%s\n\n%s\n\nFrom:%s\nTimestamp:%d", n.Subject(), n.Content, n.Sender, n.Timestamp)
}

// HTML is the body wrapped in a centered html page.
func (n *Notice) HTML() string {
	body := strings.ReplaceAll(n.Body(), "\n", "<br />")
	return fmt.Sprintf(
		"<html><head><title>%s</title></head><body><div align='center'>%s</div></body></html>",
		n.Subject(), body,
	)
}

var separator = "\n" + strings.Repeat("-", 30) + "\n"

// Save appends notice to <dir>/<sender>.json.txt and returns the file path.
func Save(dir string, notice *Notice) (string, error) {
	err := fileio.DirCreate(dir)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(notice, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, notice.Sender+".json.txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}
	defer f.Close()
	_, err = f.Write(append(data, separator...))
	if err != nil {
		return "", err
	}
	return path, nil
}
