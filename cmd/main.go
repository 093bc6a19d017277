package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"mqtt2dmx/internal/clientmqtt"
	"mqtt2dmx/internal/config"
	"mqtt2dmx/internal/fixture"
	"mqtt2dmx/internal/gateway"
	"mqtt2dmx/internal/logger"
	"mqtt2dmx/internal/protocol"
	"mqtt2dmx/internal/transport"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "configs/conf.toml", "Path to configuration file")
}

func main() {
	flag.Parse()
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		fmt.Printf("configuration file read error: %v", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Printf("failed to create a logger: %v", err)
		os.Exit(1)
	}

	log.With(logger.Fields{"module": "logger"}).Debug("newLogger created ok")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	client := clientmqtt.NewClient(log, ConvertConfigClientMQTT(cfg.MQTT))

	// Ошибка одного шлюза не останавливает остальные.
	var gateways []*gateway.Gateway
	for _, u := range cfg.Universes {
		gw, lights, err := startUniverse(log, u)
		if err != nil {
			log.With(logger.Fields{"module": "gateway", "universe": u.Name}).Errorf("universe skipped: %v", err)
			continue
		}
		gw.Start(ctx)
		client.AddUniverse(gw, lights)
		gateways = append(gateways, gw)
	}
	if len(gateways) == 0 {
		log.Error("no universe could be started")
		os.Exit(1)
	}

	if cfg.MQTT.Host != "" {
		if err = client.Start(ctx); err != nil {
			log.Error("failed to start MQTT service:", err.Error())
			cancel()
		}
	} else {
		log.With(logger.Fields{"module": "mqtt"}).Warn("no MQTT server configured, running without commands")
	}

	<-ctx.Done()

	if err := client.Stop(); err != nil {
		log.Error("failed to stop MQTT service:", err.Error())
	}

	for _, gw := range gateways {
		gw.Stop()
	}

	log.Info("shutdown complete")
}

// startUniverse opens the transport, the gateway and its fixtures. A bad
// fixture is logged and skipped.
func startUniverse(log *logger.Log, u config.UniverseConf) (*gateway.Gateway, []clientmqtt.Light, error) {
	kind, err := protocol.ParseKind(u.Protocol)
	if err != nil {
		return nil, nil, err
	}

	port := u.Port
	if port == 0 {
		port = kind.DefaultPort()
	}
	host := u.Host
	if host == "" {
		if kind != protocol.KindSACN {
			return nil, nil, errors.New("host is required")
		}
		host = protocol.MulticastAddress(u.Universe).String()
	}

	var local net.IP
	if u.BindCIDR != "" {
		local, err = transport.FindLocalIP(u.BindCIDR)
		if err != nil {
			return nil, nil, err
		}
		if local == nil {
			return nil, nil, fmt.Errorf("no interface found in %s", u.BindCIDR)
		}
	}

	cid, err := sourceCID(u)
	if err != nil {
		return nil, nil, err
	}

	tx, err := transport.Dial(host, port, local)
	if err != nil {
		return nil, nil, err
	}

	gw, err := gateway.New(log, ConvertConfigGateway(u, kind, cid), tx)
	if err != nil {
		_ = tx.Close()
		return nil, nil, err
	}
	log.With(logger.Fields{"module": "gateway", "universe": u.Name}).
		Infof("Using %s to %s, universe %d, %d channels", kind, tx.Remote(), u.Universe, gw.Channels())

	var lights []clientmqtt.Light
	for _, fc := range u.Fixtures {
		f, err := fixture.New(log, gw, ConvertConfigFixture(fc, u.DefaultType), false)
		if err != nil {
			log.With(logger.Fields{"module": "fixture", "fixture": fc.Name}).Errorf("fixture skipped: %v", err)
			continue
		}
		lights = append(lights, f)
	}

	if *u.SendLevelsOnStartup {
		_ = gw.Send()
	}
	return gw, lights, nil
}

// sourceCID returns the configured sACN CID or one derived from the
// hostname and universe name, stable across restarts.
func sourceCID(u config.UniverseConf) (uuid.UUID, error) {
	if u.CID != "" {
		cid, err := uuid.Parse(u.CID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("bad cid: %w", err)
		}
		return cid, nil
	}
	host, err := os.Hostname()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve hostname: %w", err)
	}
	host = strings.ToLower(strings.Split(host, ".")[0])
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(host+"/"+u.Name)), nil
}

// ConvertConfigClientMQTT преобразует структуры.
func ConvertConfigClientMQTT(cfg config.MQTTConf) clientmqtt.MQTTConf {
	return clientmqtt.MQTTConf{
		ClientID:    cfg.ClientID,
		Schema:      "tcp",
		Host:        cfg.Host,
		Port:        cfg.Port,
		User:        cfg.User,
		Password:    cfg.Password,
		Qos:         cfg.Qos,
		TopicPrefix: cfg.TopicPrefix,
	}
}

// ConvertConfigGateway преобразует структуры.
func ConvertConfigGateway(u config.UniverseConf, kind protocol.Kind, cid uuid.UUID) gateway.Config {
	refresh, _ := u.Refresh()
	return gateway.Config{
		Name:         u.Name,
		Protocol:     kind,
		Universe:     u.Universe,
		Channels:     u.Channels,
		DefaultLevel: *u.DefaultLevel,
		FrameRate:    u.FrameRate,
		Refresh:      refresh,
		SourceName:   u.SourceName,
		Priority:     byte(*u.Priority),
		CID:          cid,
	}
}

// ConvertConfigFixture преобразует структуры.
func ConvertConfigFixture(fc config.FixtureConf, defaultType string) fixture.Config {
	typ := fc.Type
	if typ == "" {
		typ = defaultType
	}
	return fixture.Config{
		Name:         fc.Name,
		Channel:      fc.Channel,
		Type:         typ,
		DefaultLevel: fc.DefaultLevel,
		DefaultRGB:   fc.DefaultRGB,
		White:        fc.White,
		Transition:   fc.TransitionDuration(),
		ChannelSetup: fc.ChannelSetup,
	}
}
