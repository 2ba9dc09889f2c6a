package appconfiguration

const VERSION = "1.0.0"
