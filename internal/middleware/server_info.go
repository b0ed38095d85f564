package middleware

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// BannerInfo datos del proceso que se muestran al arrancar
type BannerInfo struct {
	Port      string
	Driver    string
	Redis     bool
	AuditSink string
}

// ServerInfo muestra el banner del servidor al iniciar
func ServerInfo(info BannerInfo, logger *zap.Logger) {
	hostname, _ := os.Hostname()
	goVersion := runtime.Version()
	numCPU := runtime.NumCPU()
	startTime := time.Now().Format("2006-01-02 15:04:05")
	baseURL := "http://localhost:" + info.Port

	cacheMode := "in-process (L1 only)"
	if info.Redis {
		cacheMode = "in-process L1 + Redis L2"
	}

	endpoint := func(method, path, description string) {
		fmt.Printf("   %-6s %s%-34s%s %s\n", method, greenColor, path, resetColor, description)
	}

	fmt.Println("")
	fmt.Println("🚀 " + boldColor + "Asset Ledger API" + resetColor)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("📅 Started at: " + startTime)
	fmt.Println("🌐 Server URL: " + cyanColor + baseURL + resetColor)
	fmt.Println("💻 Hostname: " + hostname)
	fmt.Println("🔧 Go Version: " + goVersion)
	fmt.Printf("⚡ CPU Cores: %d\n", numCPU)
	fmt.Println("")
	fmt.Println("📊 " + boldColor + "Ledger:" + resetColor)
	endpoint("POST", "/api/v1/assets", "Create asset")
	endpoint("POST", "/api/v1/purchases", "Record purchase")
	endpoint("POST", "/api/v1/expenditures", "Record expenditure")
	endpoint("POST", "/api/v1/assignments", "Assign to personnel")
	endpoint("POST", "/api/v1/transfers", "Create transfer")
	endpoint("PATCH", "/api/v1/transfers/:id/status", "Advance transfer")
	endpoint("GET", "/api/v1/dashboard/net-movement", "Net movement per base")
	endpoint("GET", "/api/v1/dashboard/metrics", "Dashboard counters")
	fmt.Println("")
	fmt.Println("🔍 " + boldColor + "Monitoring:" + resetColor)
	fmt.Println("   📈 Health Check: " + cyanColor + baseURL + "/health" + resetColor)
	fmt.Println("   📉 Prometheus:   " + cyanColor + baseURL + "/metrics" + resetColor)
	fmt.Println("")
	fmt.Println("⚙️  " + boldColor + "Environment:" + resetColor)
	fmt.Println("   🗄️  Database: " + info.Driver)
	fmt.Println("   🗃️  Report cache: " + cacheMode)
	fmt.Println("   🧾 Audit sink: " + info.AuditSink)
	fmt.Println("   📝 Logging: Structured (Zap)")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("✨ " + boldColor + "Server is ready to handle requests!" + resetColor)
	fmt.Println("")

	logger.Info("Server started successfully",
		zap.String("port", info.Port),
		zap.String("hostname", hostname),
		zap.String("go_version", goVersion),
		zap.Int("cpu_cores", numCPU),
		zap.String("driver", info.Driver),
		zap.Bool("redis", info.Redis),
		zap.String("audit_sink", info.AuditSink),
	)
}
