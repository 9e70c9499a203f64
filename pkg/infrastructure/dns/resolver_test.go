package dns

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/miekg/dns"
)

// startServer runs an authoritative server for example.test on a local port
func startServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listener unavailable: %v", err)
	}

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		q := req.Question[0]
		switch {
		case q.Name == "example.test." && q.Qtype == dns.TypeA:
			rr, _ := dns.NewRR("example.test. 60 IN A 127.0.0.1")
			m.Answer = append(m.Answer, rr)
		case q.Name == "v6only.test." && q.Qtype == dns.TypeA:
			// NODATA: the name exists without an A record
		case q.Name == "v6only.test." && q.Qtype == dns.TypeAAAA:
			rr, _ := dns.NewRR("v6only.test. 60 IN AAAA ::1")
			m.Answer = append(m.Answer, rr)
		default:
			m.Rcode = dns.RcodeNameError
		}
		w.WriteMsg(m)
	})

	started := make(chan struct{})
	server := &dns.Server{PacketConn: pc, Handler: mux, NotifyStartedFunc: func() { close(started) }}
	go server.ActivateAndServe()
	t.Cleanup(func() { server.Shutdown() })

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("dns server did not start")
	}
	return pc.LocalAddr().String()
}

func TestResolver_CheckHost(t *testing.T) {
	addr := startServer(t)
	r := NewResolver(Config{Servers: []string{addr}, Timeout: time.Second})

	tests := []struct {
		host     string
		notFound bool
	}{
		{"example.test", false},
		{"v6only.test", false},
		{"missing.test", true},
	}

	for _, tt := range tests {
		err := r.CheckHost(context.Background(), tt.host)
		if got := errors.Is(err, entity.ErrHostNotFound); got != tt.notFound {
			t.Errorf("CheckHost(%s) = %v, want not found %v", tt.host, err, tt.notFound)
		}
		if !tt.notFound && err != nil {
			t.Errorf("CheckHost(%s) = %v, want nil", tt.host, err)
		}
	}
}

func TestResolver_NoServer(t *testing.T) {
	// Nothing listens on the discard port
	r := NewResolver(Config{Servers: []string{"127.0.0.1:9"}, Timeout: 200 * time.Millisecond})
	err := r.CheckHost(context.Background(), "example.test")
	if err == nil {
		t.Fatal("CheckHost should fail without a server")
	}
	if errors.Is(err, entity.ErrHostNotFound) {
		t.Errorf("CheckHost() = %v, an unreachable server is not a missing host", err)
	}
}
