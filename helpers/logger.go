package helpers

import (
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	tb "gopkg.in/tucnak/telebot.v2"
)

// Logger is the shared process logger. Infoln lines are mirrored to a
// Telegram chat when telegramOutput is enabled.
var Logger = newBotLogger()

type botLogger struct {
	base           *log.Logger
	telegramOutput bool
	telegramToken  string
	telegramChatId string
	bot            *tb.Bot
}

func newBotLogger() *botLogger {
	formatter := &PlainFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		LevelDesc:       []string{"PANIC", "FATAL", "ERROR", "WARN", "INFO ", "DEBUG"},
	}
	base := log.New()
	base.SetOutput(os.Stdout)
	base.SetFormatter(formatter)
	base.SetLevel(log.TraceLevel)

	if logFile := os.Getenv("logFile"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		base.SetOutput(f)
	}

	l := &botLogger{base: base}
	l.telegramOutput, _ = strconv.ParseBool(os.Getenv("telegramOutput"))
	if l.telegramOutput {
		l.telegramToken = os.Getenv("telegramToken")
		l.telegramChatId = os.Getenv("telegramChatId")
		if l.telegramToken == "" || l.telegramChatId == "" {
			base.Warnln("telegramOutput enabled without telegramToken/telegramChatId, disabling")
			l.telegramOutput = false
		}
	}
	return l
}

func (l *botLogger) Infoln(args ...interface{}) {
	l.base.Infoln(args...)
	if l.telegramOutput {
		if err := l.notify(fmt.Sprintf("%s", args[0])); err != nil {
			l.base.Errorln("telegram notification failed:", err)
		}
	}
}

func (l *botLogger) Warnln(args ...interface{})  { l.base.Warnln(args...) }
func (l *botLogger) Errorln(args ...interface{}) { l.base.Errorln(args...) }
func (l *botLogger) Fatalln(args ...interface{}) { l.base.Fatalln(args...) }
func (l *botLogger) Debugln(args ...interface{}) { l.base.Debugln(args...) }

// notify lazily connects the bot once and reuses it across messages.
func (l *botLogger) notify(message string) error {
	if l.bot == nil {
		bot, err := tb.NewBot(tb.Settings{
			Token:  l.telegramToken,
			Poller: &tb.LongPoller{Timeout: 10 * time.Second},
		})
		if err != nil {
			return err
		}
		l.bot = bot
	}

	chat, err := l.bot.ChatByID(l.telegramChatId)
	if err != nil {
		return err
	}
	_, err = l.bot.Send(chat, message)
	return err
}

type PlainFormatter struct {
	TimestampFormat string
	LevelDesc       []string
}

func (f PlainFormatter) Format(entry *log.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("%s %s %s\n",
		f.LevelDesc[entry.Level], entry.Time.Format(f.TimestampFormat), entry.Message)), nil
}
