package main

import (
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"

	"brpay/src/boot"
	"brpay/src/types"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	_ "github.com/joho/godotenv/autoload"
)

const (
	apiPrefix string = "/api/v1"
)

// iso4217Pattern keeps currency validation to shape only; the provider is the
// authority on which currencies it actually settles.
var iso4217Pattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

var currencyValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	currency, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return iso4217Pattern.MatchString(currency)
}

var payMethodValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	method, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	m := types.PaymentMethod(method)
	return m == types.METHOD_PIX || m == types.METHOD_CARD
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func registerRoutes(router *gin.Engine) {
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	apiv1 := apiv1Group(router)
	paymentHandlers(apiv1)
	webhookRoutes(router)
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	registerRoutes(router)
	return router
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("currency", currencyValidatorFunc)
		v.RegisterValidation("paymethod", payMethodValidatorFunc)
	}
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()

	boot.InitDb()
	boot.InitProviders()
	boot.SeedMerchants()
	boot.InitScheduler()
	defer boot.StopScheduler()
	go boot.InitBroker()

	registerValidators()

	router := gin.Default()
	appHost := os.Getenv("APP_HOST")
	if appEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Idempotency-Key", "X-Webhook-Signature", "X-Webhook-Timestamp", "X-Webhook-Delivery")
		cc.AllowOriginFunc = func(origin string) bool {
			match, _ := regexp.MatchString(appHost, origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	registerRoutes(router)

	if err := router.Run(":9090"); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}
