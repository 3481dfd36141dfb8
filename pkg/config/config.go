package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	Env                     string
	BaseURL                 string
	MongoURI                string
	MongoDBName             string
	PostgresConnStr         string
	JWTSecret               string
	FirebaseCredentialsPath string
	UploadsDir              string
	MaxUploadSizeMB         string
	SMTPHost                string
	SMTPPort                string
	SMTPEmail               string
	SMTPPassword            string
	FromName                string
	FromEmail               string
}

// Load merges any .env file in the working directory into the process
// environment, then reads the configuration. Real environment variables
// always win over .env entries.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		BaseURL:                 getEnv("BASE_URL", "http://localhost:8080"),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDBName:             getEnv("MONGO_DB_NAME", "socius"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		JWTSecret:               getEnv("JWT_SECRET", "supersecretjwtkey"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		UploadsDir:              getEnv("UPLOADS_DIR", "./uploads"),
		MaxUploadSizeMB:         getEnv("MAX_UPLOAD_SIZE_MB", "5"),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                getEnv("SMTP_PORT", "587"),
		SMTPEmail:               getEnv("SMTP_EMAIL", ""),
		SMTPPassword:            getEnv("SMTP_PASSWORD", ""),
		FromName:                getEnv("FROM_NAME", "Socius"),
		FromEmail:               getEnv("FROM_EMAIL", "no-reply@socius.local"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
