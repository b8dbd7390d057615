package sink

import (
	"log/slog"

	"github.com/foxseedlab/tsuyaku/internal/config"
	"github.com/foxseedlab/tsuyaku/internal/discord"
	"github.com/foxseedlab/tsuyaku/internal/repository"
	"github.com/foxseedlab/tsuyaku/internal/sink"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*sink.Fanout, error) {
		c := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		dc := do.MustInvoke[discord.Client](i)

		f := sink.NewFanout().
			Add("repository", sink.NewRepositorySink(repo)).
			Add("discord", sink.NewDiscordSink(dc))
		if c.TranscribeLog != "" && c.TranslateLog != "" {
			fs, err := NewFileSink(c.TranscribeLog, c.TranslateLog)
			if err != nil {
				return nil, err
			}
			f.Add("file", fs)
		}
		if c.RedisURL != "" {
			rs, err := NewRedisSinkFromURL(c.RedisURL, c.RedisChannel)
			if err != nil {
				return nil, err
			}
			f.Add("redis", rs)
		}
		slog.Info("segment sinks configured", "count", f.Len())
		return f, nil
	})
}
