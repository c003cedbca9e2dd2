// Package discovery finds TerraDetect gateways on the local network with
// multicast DNS and lets a gateway announce itself.
//
// Gateways register the "_terradetect._tcp" service in the "local." domain
// with TXT records carrying the build version and enabled features:
//
//	adv, err := discovery.Advertise(5000, "thingspeak", "weather")
//	if err != nil {
//		return err
//	}
//	defer adv.Shutdown()
//
// Clients browse for them:
//
//	gateways, err := discovery.Scan(ctx, 5*time.Second)
//	for _, gw := range gateways {
//		fmt.Println(gw.BaseURL())
//	}
//
// mDNS needs multicast on the local segment; it does not cross routers or
// most container networks.
package discovery
